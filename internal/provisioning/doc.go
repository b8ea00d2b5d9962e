// Package provisioning implements the compensating-transaction saga that
// creates a virtual-SCSI adapter pair, carves a logical volume on the VIOS,
// and maps it to the target partition.
//
// The saga walks a fixed sequence of states. Every mutating step classifies
// its outcome as changed, already-satisfied (a benign duplicate message on
// non-zero exit), or a hard failure. Only newly caused changes are recorded
// for rollback; on abort the recorded compensations run in strict reverse
// order, each best-effort, and the original error is surfaced together with
// the list of compensations attempted.
package provisioning
