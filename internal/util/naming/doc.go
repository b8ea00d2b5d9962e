// Package naming provides consistent naming functions for VIOS resources.
//
// Virtual target device (VTD) names are limited to 15 characters by the
// VIOS command layer, so derived names are truncated to fit. Derivation is
// deterministic: the same partition name always yields the same VTD name.
package naming
