// Package shaders holds the GLSL sources of the compute kernel and the
// point renderer.
package shaders

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

// WorkgroupToken is replaced with the workgroup size before compilation.
const WorkgroupToken = "__WORKGROUP_SIZE__"

// MaxWorkgroupSize is the smallest GL_MAX_COMPUTE_WORK_GROUP_SIZE.x an
// OpenGL 4.3 implementation may report.
const MaxWorkgroupSize = 1024

var (
	//go:embed nbody.comp
	nbodyCompute string

	//go:embed points.vert
	PointsVertex string

	//go:embed points.frag
	PointsFragment string

	//go:embed backdrop.vert
	BackdropVertex string

	//go:embed backdrop.frag
	BackdropFragment string
)

// Compute returns the N-body compute shader for the given workgroup size.
func Compute(workgroupSize int) (string, error) {
	if workgroupSize < 1 || workgroupSize > MaxWorkgroupSize {
		return "", fmt.Errorf("workgroup size %d outside [1, %d]", workgroupSize, MaxWorkgroupSize)
	}
	if !strings.Contains(nbodyCompute, WorkgroupToken) {
		return "", fmt.Errorf("compute shader has no %s placeholder", WorkgroupToken)
	}
	return strings.ReplaceAll(nbodyCompute, WorkgroupToken, strconv.Itoa(workgroupSize)), nil
}
