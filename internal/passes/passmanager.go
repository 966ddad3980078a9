// Package passes implements the transform pipeline that runs over an
// internal/ir Module after lowering: constant propagation, dead-code
// elimination, function inlining, and loop-invariant code motion, driven by
// a PassManager in caller-specified order.
package passes

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/foundryc/ssair/internal/ir"
)

// Pass is one transform stage. Run mutates mod in place.
type Pass interface {
	Name() string
	Run(mod *ir.Module) error
}

// PassManager runs a fixed sequence of passes over a single Module. It is
// the one place a pass's internal invariant panics are recovered and turned
// back into a plain error, the way the teacher's codegen centralizes its own
// failure handling at the top of OptimizeModule.
type PassManager struct {
	Logger *logrus.Logger
	Passes []Pass
}

// NewPassManager creates a manager with no passes registered. Run uses
// logrus.StandardLogger() while the Logger field is left nil.
func NewPassManager() *PassManager {
	return &PassManager{}
}

// Register appends p to the pipeline.
func (pm *PassManager) Register(p Pass) {
	pm.Passes = append(pm.Passes, p)
}

// Run executes every registered pass, in order, against mod. A pass's
// ir.InvariantError panic is recovered here and returned as a plain error;
// no partial recovery is attempted, matching spec.md §7's "fatal to this
// compilation" rule for category-3 errors.
func (pm *PassManager) Run(mod *ir.Module) (err error) {
	logger := pm.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*ir.InvariantError); ok {
				err = errors.Wrap(ie, "pass invariant violation")
				return
			}
			panic(r)
		}
	}()

	for _, p := range pm.Passes {
		logger.WithField("pass", p.Name()).Debug("running pass")
		if runErr := p.Run(mod); runErr != nil {
			return errors.Wrapf(runErr, "pass %s failed", p.Name())
		}
	}
	return nil
}
