// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package scenario

import "github.com/hashicorp/hcl/v2"

// isExprDefined checks if an HCL expression was actually present in the source.
// The gohcl decoder fills omitted optional hcl.Expression fields with a
// zero-width synthetic null expression, so a nil check is insufficient. A real
// attribute occupies bytes in the file; the placeholder's range starts and ends
// on the same byte.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}
