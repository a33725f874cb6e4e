// Package typecheck validates the stack discipline of a function body
// one operator at a time. The checker keeps its own value-type stack
// and a stack of control labels; the translator drives it with one
// call per operator and reads the label records back to size branch
// drop/keep counts.
package typecheck

import (
	"fmt"

	"github.com/guybedford/wabt/wasm"
)

// typeAny is the polymorphic type that unreachable code produces; it
// satisfies any expected type.
const typeAny byte = 0xff

// LabelType discriminates the control scope a Label tracks.
type LabelType byte

const (
	LabelTypeFunc LabelType = iota
	LabelTypeBlock
	LabelTypeLoop
	LabelTypeIf
	LabelTypeElse
)

func (lt LabelType) String() string {
	switch lt {
	case LabelTypeFunc:
		return "function"
	case LabelTypeBlock:
		return "block"
	case LabelTypeLoop:
		return "loop"
	case LabelTypeIf:
		return "if"
	case LabelTypeElse:
		return "if false branch"
	}
	return "unknown"
}

// Label is one open control scope. TypeStackLimit is the value-stack
// height at scope entry; values below it are not visible to the scope.
type Label struct {
	LabelType      LabelType
	Sig            []wasm.ValueType
	TypeStackLimit int
	Unreachable    bool
}

// IsLoop reports whether a branch to this label targets the scope
// entry rather than its end.
func (l *Label) IsLoop() bool { return l.LabelType == LabelTypeLoop }

// TypeChecker validates one function body at a time. BeginFunction
// resets all state.
type TypeChecker struct {
	typeStack []byte
	labels    []*Label

	brTableSig    []wasm.ValueType
	hasBrTableSig bool
}

// New returns an empty TypeChecker.
func New() *TypeChecker {
	return &TypeChecker{}
}

// TypeStackSize returns the current height of the value-type stack.
func (c *TypeChecker) TypeStackSize() int { return len(c.typeStack) }

// GetLabel returns the label depth steps below the innermost open
// scope, 0 being the innermost.
func (c *TypeChecker) GetLabel(depth uint32) (*Label, error) {
	if int(depth) >= len(c.labels) {
		return nil, fmt.Errorf("invalid depth: %d (max %d)", depth, len(c.labels)-1)
	}
	return c.labels[len(c.labels)-1-int(depth)], nil
}

// IsUnreachable reports whether the current position follows an
// operator that never falls through (unreachable, br, return, ...).
func (c *TypeChecker) IsUnreachable() bool {
	if len(c.labels) == 0 {
		return false
	}
	return c.labels[len(c.labels)-1].Unreachable
}

// BeginFunction resets the checker and opens the implicit function
// label with the function's result signature.
func (c *TypeChecker) BeginFunction(results []wasm.ValueType) {
	c.typeStack = c.typeStack[:0]
	c.labels = c.labels[:0]
	c.pushLabel(LabelTypeFunc, results)
}

// EndFunction closes the implicit function label.
func (c *TypeChecker) EndFunction() error {
	label, err := c.topLabel()
	if err != nil {
		return err
	}
	if label.LabelType != LabelTypeFunc {
		return fmt.Errorf("unexpected end of function, %d scopes still open", len(c.labels)-1)
	}
	return c.endLabel(label, "implicit return", "function")
}

func (c *TypeChecker) OnBlock(sig []wasm.ValueType) error {
	c.pushLabel(LabelTypeBlock, sig)
	return nil
}

func (c *TypeChecker) OnLoop(sig []wasm.ValueType) error {
	c.pushLabel(LabelTypeLoop, sig)
	return nil
}

func (c *TypeChecker) OnIf(sig []wasm.ValueType) error {
	if err := c.popAndCheck1(wasm.ValueTypeI32, "if"); err != nil {
		return err
	}
	c.pushLabel(LabelTypeIf, sig)
	return nil
}

func (c *TypeChecker) OnElse() error {
	label, err := c.topLabel()
	if err != nil {
		return err
	}
	if label.LabelType != LabelTypeIf {
		return fmt.Errorf("unexpected else")
	}
	if err := c.popAndCheckSignature(label.Sig, "if true branch"); err != nil {
		return err
	}
	c.typeStack = c.typeStack[:label.TypeStackLimit]
	label.Unreachable = false
	label.LabelType = LabelTypeElse
	return nil
}

func (c *TypeChecker) OnEnd() error {
	label, err := c.topLabel()
	if err != nil {
		return err
	}
	if label.LabelType == LabelTypeFunc {
		// The end that closes the function arrives as EndFunction, so
		// reaching the implicit label here means unbalanced scopes.
		return fmt.Errorf("unexpected end")
	}
	if label.LabelType == LabelTypeIf {
		// An if without an else passes through its inputs, so the
		// signature must also be satisfiable by the empty false branch.
		if err := c.OnElse(); err != nil {
			return err
		}
	}
	desc := label.LabelType.String()
	return c.endLabel(label, desc, desc)
}

func (c *TypeChecker) OnBr(depth uint32) error {
	label, err := c.GetLabel(depth)
	if err != nil {
		return err
	}
	if !label.IsLoop() {
		if err := c.checkSignature(label.Sig, "br"); err != nil {
			return err
		}
	}
	c.setUnreachable()
	return nil
}

func (c *TypeChecker) OnBrIf(depth uint32) error {
	if err := c.popAndCheck1(wasm.ValueTypeI32, "br_if"); err != nil {
		return err
	}
	label, err := c.GetLabel(depth)
	if err != nil {
		return err
	}
	if !label.IsLoop() {
		return c.checkSignature(label.Sig, "br_if")
	}
	return nil
}

func (c *TypeChecker) BeginBrTable() error {
	c.brTableSig = nil
	c.hasBrTableSig = false
	return c.popAndCheck1(wasm.ValueTypeI32, "br_table")
}

func (c *TypeChecker) OnBrTableTarget(depth uint32) error {
	label, err := c.GetLabel(depth)
	if err != nil {
		return err
	}
	var sig []wasm.ValueType
	if !label.IsLoop() {
		sig = label.Sig
	}
	if c.hasBrTableSig && !wasm.HasSameSignature(c.brTableSig, sig) {
		return fmt.Errorf("br_table labels have inconsistent types")
	}
	c.brTableSig, c.hasBrTableSig = sig, true
	return c.checkSignature(sig, "br_table")
}

func (c *TypeChecker) EndBrTable() error {
	c.setUnreachable()
	return nil
}

func (c *TypeChecker) OnCall(params, results []wasm.ValueType) error {
	return c.popAndCheckCall(params, results, "call")
}

func (c *TypeChecker) OnCallIndirect(params, results []wasm.ValueType) error {
	if err := c.popAndCheck1(wasm.ValueTypeI32, "call_indirect"); err != nil {
		return err
	}
	return c.popAndCheckCall(params, results, "call_indirect")
}

func (c *TypeChecker) OnReturn() error {
	if len(c.labels) == 0 {
		return fmt.Errorf("return outside of function")
	}
	funcLabel := c.labels[0]
	if err := c.checkSignature(funcLabel.Sig, "return"); err != nil {
		return err
	}
	c.setUnreachable()
	return nil
}

func (c *TypeChecker) OnUnreachable() error {
	c.setUnreachable()
	return nil
}

func (c *TypeChecker) OnDrop() error {
	return c.dropTypes(1, "drop")
}

func (c *TypeChecker) OnSelect() error {
	if err := c.popAndCheck1(wasm.ValueTypeI32, "select"); err != nil {
		return err
	}
	t1, err := c.peekType(0, "select")
	if err != nil {
		return err
	}
	t2, err := c.peekType(1, "select")
	if err != nil {
		return err
	}
	if err := c.checkType(t1, t2, "select"); err != nil {
		return err
	}
	if err := c.dropTypes(2, "select"); err != nil {
		return err
	}
	if t1 == typeAny {
		t1 = t2
	}
	c.pushType(t1)
	return nil
}

func (c *TypeChecker) OnConst(t wasm.ValueType) error {
	c.pushType(t)
	return nil
}

func (c *TypeChecker) OnLocalGet(t wasm.ValueType) error {
	c.pushType(t)
	return nil
}

func (c *TypeChecker) OnLocalSet(t wasm.ValueType) error {
	return c.popAndCheck1(t, "local.set")
}

func (c *TypeChecker) OnLocalTee(t wasm.ValueType) error {
	if err := c.popAndCheck1(t, "local.tee"); err != nil {
		return err
	}
	c.pushType(t)
	return nil
}

func (c *TypeChecker) OnGlobalGet(t wasm.ValueType) error {
	c.pushType(t)
	return nil
}

func (c *TypeChecker) OnGlobalSet(t wasm.ValueType) error {
	return c.popAndCheck1(t, "global.set")
}

func (c *TypeChecker) OnLoad(op wasm.Opcode) error { return c.applyOpcode(op) }
func (c *TypeChecker) OnStore(op wasm.Opcode) error { return c.applyOpcode(op) }
func (c *TypeChecker) OnMemorySize() error { return c.applyOpcode(wasm.OpcodeMemorySize) }
func (c *TypeChecker) OnMemoryGrow() error { return c.applyOpcode(wasm.OpcodeMemoryGrow) }
func (c *TypeChecker) OnUnary(op wasm.Opcode) error { return c.applyOpcode(op) }
func (c *TypeChecker) OnBinary(op wasm.Opcode) error { return c.applyOpcode(op) }
func (c *TypeChecker) OnCompare(op wasm.Opcode) error { return c.applyOpcode(op) }
func (c *TypeChecker) OnConvert(op wasm.Opcode) error { return c.applyOpcode(op) }

// applyOpcode pops the opcode's operand types and pushes its results.
func (c *TypeChecker) applyOpcode(op wasm.Opcode) error {
	sig, err := opcodeSignature(op)
	if err != nil {
		return err
	}
	desc := wasm.OpcodeName(op)
	if err := c.checkSignature(sig.params, desc); err != nil {
		return err
	}
	if err := c.dropTypes(len(sig.params), desc); err != nil {
		return err
	}
	for _, t := range sig.results {
		c.pushType(t)
	}
	return nil
}

// internals

func (c *TypeChecker) pushLabel(lt LabelType, sig []wasm.ValueType) {
	c.labels = append(c.labels, &Label{
		LabelType:      lt,
		Sig:            sig,
		TypeStackLimit: len(c.typeStack),
	})
}

func (c *TypeChecker) popLabel() {
	c.labels = c.labels[:len(c.labels)-1]
}

func (c *TypeChecker) topLabel() (*Label, error) {
	if len(c.labels) == 0 {
		return nil, fmt.Errorf("no open scope")
	}
	return c.labels[len(c.labels)-1], nil
}

// setUnreachable marks the current scope dead and discards the values
// it produced so far.
func (c *TypeChecker) setUnreachable() {
	label := c.labels[len(c.labels)-1]
	label.Unreachable = true
	c.typeStack = c.typeStack[:label.TypeStackLimit]
}

func (c *TypeChecker) pushType(t byte) {
	c.typeStack = append(c.typeStack, t)
}

// peekType returns the type depth entries below the top of the value
// stack. Below an unreachable scope's visible window every value is
// polymorphic.
func (c *TypeChecker) peekType(depth int, desc string) (byte, error) {
	label := c.labels[len(c.labels)-1]
	if len(c.typeStack) <= label.TypeStackLimit+depth {
		if label.Unreachable {
			return typeAny, nil
		}
		return typeAny, fmt.Errorf("type stack size too small at %s. got %d, expected at least %d",
			desc, len(c.typeStack)-label.TypeStackLimit, depth+1)
	}
	return c.typeStack[len(c.typeStack)-depth-1], nil
}

func (c *TypeChecker) checkType(actual, expected byte, desc string) error {
	if actual == expected || actual == typeAny || expected == typeAny {
		return nil
	}
	return fmt.Errorf("type mismatch in %s, expected %s but got %s",
		desc, typeName(expected), typeName(actual))
}

func (c *TypeChecker) peekAndCheckType(depth int, expected byte, desc string) error {
	actual, err := c.peekType(depth, desc)
	if err != nil {
		return err
	}
	return c.checkType(actual, expected, desc)
}

func (c *TypeChecker) dropTypes(drop int, desc string) error {
	label := c.labels[len(c.labels)-1]
	if len(c.typeStack) < label.TypeStackLimit+drop {
		if label.Unreachable {
			c.typeStack = c.typeStack[:label.TypeStackLimit]
			return nil
		}
		return fmt.Errorf("type stack size too small at %s. got %d, expected at least %d",
			desc, len(c.typeStack)-label.TypeStackLimit, drop)
	}
	c.typeStack = c.typeStack[:len(c.typeStack)-drop]
	return nil
}

// checkSignature verifies the top of the stack matches sig without
// consuming it.
func (c *TypeChecker) checkSignature(sig []wasm.ValueType, desc string) error {
	for i, t := range sig {
		if err := c.peekAndCheckType(len(sig)-i-1, t, desc); err != nil {
			return err
		}
	}
	return nil
}

func (c *TypeChecker) popAndCheckSignature(sig []wasm.ValueType, desc string) error {
	if err := c.checkSignature(sig, desc); err != nil {
		return err
	}
	return c.dropTypes(len(sig), desc)
}

func (c *TypeChecker) popAndCheck1(expected byte, desc string) error {
	if err := c.peekAndCheckType(0, expected, desc); err != nil {
		return err
	}
	return c.dropTypes(1, desc)
}

func (c *TypeChecker) popAndCheckCall(params, results []wasm.ValueType, desc string) error {
	if err := c.checkSignature(params, desc); err != nil {
		return err
	}
	if err := c.dropTypes(len(params), desc); err != nil {
		return err
	}
	for _, t := range results {
		c.pushType(t)
	}
	return nil
}

// endLabel closes a scope: the stack must hold exactly the scope's
// signature above its limit, which is then re-pushed for the enclosing
// scope.
func (c *TypeChecker) endLabel(label *Label, sigDesc, endDesc string) error {
	if err := c.popAndCheckSignature(label.Sig, sigDesc); err != nil {
		return err
	}
	if len(c.typeStack) != label.TypeStackLimit {
		return fmt.Errorf("type stack at end of %s is %d, expected %d",
			endDesc, len(c.typeStack)-label.TypeStackLimit, 0)
	}
	c.typeStack = c.typeStack[:label.TypeStackLimit]
	for _, t := range label.Sig {
		c.pushType(t)
	}
	c.popLabel()
	return nil
}

func typeName(t byte) string {
	if t == typeAny {
		return "any"
	}
	return wasm.ValueTypeName(t)
}
