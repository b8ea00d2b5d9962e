package provisioning

import (
	"fmt"

	"github.com/powervm-tools/lparvol/internal/locator"
)

// HMC CLI command construction. The argument grammar is an external
// protocol and must be reproduced exactly; keep these builders in one place
// so forward steps and their compensations stay symmetric.

func serverAdapterAddArgs(ms locator.ManagedSystemRef, viosName, viosSlot, lparName, lparSlot string) []string {
	return []string{
		"chhwres", "-r", "virtualio", "--rsubtype", "scsi", "-m", ms.Name,
		"-o", "a", "-p", viosName, "-s", viosSlot,
		"-a", fmt.Sprintf("adapter_type=server,remote_lpar_name=%s,remote_slot_num=%s", lparName, lparSlot),
	}
}

func serverAdapterRemoveArgs(ms locator.ManagedSystemRef, viosName, viosSlot string) []string {
	return []string{
		"chhwres", "-r", "virtualio", "--rsubtype", "scsi", "-m", ms.Name,
		"-o", "r", "-p", viosName, "-s", viosSlot,
	}
}

// clientAdapterAttr builds the profile attribute string for chsyscfg. op is
// "+=" to bind the client adapter slot or "-=" to remove it; the value is
// the 6-field slash tuple slot/role/peer-id/peer-name/peer-slot/flag.
func clientAdapterAttr(profile, lparName, lparSlot string, viosID int, viosName, viosSlot, op string) string {
	return fmt.Sprintf("name=%s,lpar_name=%s,virtual_scsi_adapters%s%s/client/%d/%s/%s/0",
		profile, lparName, op, lparSlot, viosID, viosName, viosSlot)
}

func clientAdapterArgs(ms locator.ManagedSystemRef, attr string) []string {
	return []string{"chsyscfg", "-r", "prof", "-m", ms.Name, "--force", "-i", attr}
}

// VIOS passthrough commands.

const rescanCommand = "cfgdev -dev vio0"

func mklvCommand(volume, group string, sizeGB int) string {
	return fmt.Sprintf("mklv -lv %s %s %dG", volume, group, sizeGB)
}

func rmlvCommand(volume string) string {
	return fmt.Sprintf("rmlv -f %s", volume)
}

const lsmapAllCommand = "lsmap -all -fmt ':'"

func lsmapAdapterCommand(vhost string) string {
	return fmt.Sprintf("lsmap -vadapter %s -fmt ':'", vhost)
}

func mkvdevCommand(volume, vhost, vtd string) string {
	return fmt.Sprintf("mkvdev -vdev %s -vadapter %s -dev %s", volume, vhost, vtd)
}

func rmvdevCommand(vtd string) string {
	return fmt.Sprintf("rmvdev -vtd %s", vtd)
}
