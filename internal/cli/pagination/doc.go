// Package pagination provides sorting and offset/page windowing for CLI list
// commands.
//
//   - Params: flag values and their validation
//   - Meta: where a window sits in the full list
//   - FactorSorter: field-validated ordering of emission factor entries
package pagination
