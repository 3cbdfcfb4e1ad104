package vm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("tern.vm")

// ---------------------------------------------------------------------------
// CallFrame: Execution state for a method invocation
// ---------------------------------------------------------------------------

// CallFrame represents the execution state of a single method invocation.
// Arguments and locals live on the operand stack starting at BP; the
// operand area of the frame begins after them.
type CallFrame struct {
	Method *Method // the method being executed
	Index  int     // method index within the module
	IP     int     // index of the next instruction
	BP     int     // stack index of argument 0
}

func (f *CallFrame) localBase() int {
	return f.BP + len(f.Method.Params)
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// RuntimeError is a failure raised while executing a module.
type RuntimeError struct {
	Method  string
	PC      int
	Message string
}

func (e *RuntimeError) Error() string {
	if e.Method == "" {
		return "runtime error: " + e.Message
	}
	return fmt.Sprintf("runtime error in %s at %04d: %s", e.Method, e.PC, e.Message)
}

// exitRequest unwinds the machine when a program calls std.sys.exit.
type exitRequest struct {
	code int
}

func (e *exitRequest) Error() string {
	return fmt.Sprintf("exit %d", e.code)
}

// ---------------------------------------------------------------------------
// Machine: Bytecode execution engine
// ---------------------------------------------------------------------------

// DefaultMaxDepth bounds the call stack.
const DefaultMaxDepth = 1024

// Machine executes one module. A Machine is not safe for concurrent use.
type Machine struct {
	module  *Module
	statics []Value
	natives []*Native

	stack  []Value
	sp     int
	frames []*CallFrame
	fp     int

	out      *bufio.Writer
	in       *bufio.Reader
	rng      *rand.Rand
	now      func() time.Time
	start    time.Time
	maxDepth int
}

// Option configures a Machine.
type Option func(*Machine)

// WithOutput directs print and println to w.
func WithOutput(w io.Writer) Option {
	return func(m *Machine) { m.out = bufio.NewWriter(w) }
}

// WithInput makes input read lines from r.
func WithInput(r io.Reader) Option {
	return func(m *Machine) { m.in = bufio.NewReader(r) }
}

// WithSeed makes random deterministic.
func WithSeed(seed int64) Option {
	return func(m *Machine) { m.rng = rand.New(rand.NewSource(seed)) }
}

// WithClock replaces the time source used by clock.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithMaxDepth bounds the call stack.
func WithMaxDepth(depth int) Option {
	return func(m *Machine) { m.maxDepth = depth }
}

// NewMachine prepares a module for execution. Every native the module
// references must be known to this runtime.
func NewMachine(mod *Module, opts ...Option) (*Machine, error) {
	m := &Machine{
		module:   mod,
		stack:    make([]Value, 1024),
		fp:       -1,
		maxDepth: DefaultMaxDepth,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.out == nil {
		m.out = bufio.NewWriter(os.Stdout)
	}
	if m.in == nil {
		m.in = bufio.NewReader(os.Stdin)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	m.start = m.now()

	m.natives = make([]*Native, len(mod.Natives))
	for i, key := range mod.Natives {
		n, ok := LookupNative(key)
		if !ok {
			return nil, fmt.Errorf("module %s: unknown native %q", mod.Name, key)
		}
		m.natives[i] = n
	}
	for i, meth := range mod.Methods {
		if err := validateMethod(mod, meth); err != nil {
			return nil, fmt.Errorf("module %s: method %d: %w", mod.Name, i, err)
		}
	}
	return m, nil
}

// validateMethod checks operand ranges so execution can index tables
// without bounds checks of its own.
func validateMethod(mod *Module, meth *Method) error {
	for pc, ins := range meth.Code {
		a := int(ins.A)
		var limit int
		switch ins.Op.Info().Operand {
		case OperandConst:
			limit = len(mod.Constants)
		case OperandArg:
			limit = len(meth.Params)
		case OperandLocal:
			limit = len(meth.Locals)
		case OperandStatic:
			limit = len(mod.Fields)
		case OperandNative:
			limit = len(mod.Natives)
		case OperandMethod:
			limit = len(mod.Methods)
		case OperandType:
			limit = len(mod.Types)
		case OperandTarget:
			limit = len(meth.Code)
		default:
			continue
		}
		if a < 0 || a >= limit {
			return fmt.Errorf("%s: %s operand %d out of range at %04d", meth.Name, ins.Op, a, pc)
		}
	}
	return nil
}

// Run initializes the static fields, runs the initializer and then the
// entry point. The exit code is the one passed to std.sys.exit, or zero.
func (m *Machine) Run() (int, error) {
	defer m.out.Flush()

	if m.module.Entry < 0 {
		return 1, &RuntimeError{Message: "module has no entry point"}
	}

	m.statics = make([]Value, len(m.module.Fields))
	for i, f := range m.module.Fields {
		m.statics[i] = ZeroValue(f.Type)
	}

	if m.module.Init >= 0 {
		log.Debugf("running initializer of %s", m.module.Name)
		if _, err := m.Invoke(m.module.Init); err != nil {
			return m.finish(err)
		}
	}
	log.Debugf("running %s", m.module.Methods[m.module.Entry].Name)
	if _, err := m.Invoke(m.module.Entry); err != nil {
		return m.finish(err)
	}
	return 0, nil
}

func (m *Machine) finish(err error) (int, error) {
	var exit *exitRequest
	if errors.As(err, &exit) {
		log.Debugf("exit %d", exit.code)
		return exit.code, nil
	}
	return 1, err
}

// Invoke runs one method with the given arguments and returns its result,
// or nil for void methods. Static fields are zeroed on first use.
func (m *Machine) Invoke(method int, args ...Value) (Value, error) {
	if m.statics == nil {
		m.statics = make([]Value, len(m.module.Fields))
		for i, f := range m.module.Fields {
			m.statics[i] = ZeroValue(f.Type)
		}
	}
	meth := m.module.Methods[method]
	if len(args) != len(meth.Params) {
		return nil, &RuntimeError{Method: meth.Name, Message: fmt.Sprintf("expected %d arguments, got %d", len(meth.Params), len(args))}
	}

	base, sp := m.fp, m.sp
	for _, a := range args {
		m.push(a)
	}
	err := m.enter(method)
	var result Value
	if err == nil {
		result, err = m.execute(base)
	}
	if err != nil {
		// Unwind whatever the failure left behind.
		for m.fp > base {
			m.frames[m.fp] = nil
			m.fp--
		}
		for m.sp > sp {
			m.pop()
		}
	}
	return result, err
}

// ---------------------------------------------------------------------------
// Stack and frames
// ---------------------------------------------------------------------------

func (m *Machine) push(v Value) {
	if m.sp >= len(m.stack) {
		m.stack = append(m.stack, make([]Value, len(m.stack))...)
	}
	m.stack[m.sp] = v
	m.sp++
}

func (m *Machine) pop() Value {
	m.sp--
	v := m.stack[m.sp]
	m.stack[m.sp] = nil
	return v
}

func (m *Machine) top() Value {
	return m.stack[m.sp-1]
}

// enter pushes a frame for method whose arguments are already on the stack.
func (m *Machine) enter(method int) error {
	meth := m.module.Methods[method]
	if m.fp+1 >= m.maxDepth {
		return m.errorf("stack overflow calling %s", meth.Name)
	}
	frame := &CallFrame{Method: meth, Index: method, BP: m.sp - len(meth.Params)}
	for _, l := range meth.Locals {
		m.push(ZeroValue(l.Type))
	}
	m.fp++
	if m.fp < len(m.frames) {
		m.frames[m.fp] = frame
	} else {
		m.frames = append(m.frames, frame)
	}
	return nil
}

// leave pops the current frame and its arguments and locals.
func (m *Machine) leave() {
	f := m.frames[m.fp]
	for m.sp > f.BP {
		m.pop()
	}
	m.frames[m.fp] = nil
	m.fp--
}

func (m *Machine) errorf(format string, args ...interface{}) error {
	err := &RuntimeError{Message: fmt.Sprintf(format, args...)}
	if m.fp >= 0 {
		f := m.frames[m.fp]
		err.Method = f.Method.Name
		err.PC = f.IP - 1
	}
	return err
}

// ---------------------------------------------------------------------------
// Execution loop
// ---------------------------------------------------------------------------

// execute runs until the frame above base returns.
func (m *Machine) execute(base int) (Value, error) {
	for {
		frame := m.frames[m.fp]
		code := frame.Method.Code
		if frame.IP >= len(code) {
			return nil, m.errorf("fell off the end of %s", frame.Method.Name)
		}
		ins := code[frame.IP]
		frame.IP++

		switch ins.Op {
		case OpNOP:

		case OpPOP:
			m.pop()

		case OpDUP:
			m.push(m.top())

		case OpPushConst:
			m.push(m.module.Constants[ins.A].Value())

		case OpLoadArg:
			m.push(m.stack[frame.BP+int(ins.A)])

		case OpLoadLocal:
			m.push(m.stack[frame.localBase()+int(ins.A)])

		case OpStoreLocal:
			m.stack[frame.localBase()+int(ins.A)] = m.top()

		case OpLoadStatic:
			m.push(m.statics[ins.A])

		case OpStoreStatic:
			m.statics[ins.A] = m.top()

		case OpLoadNative:
			n := m.natives[ins.A]
			if n.Field == nil {
				return nil, m.errorf("%s is not a field", m.module.Natives[ins.A])
			}
			m.push(n.Field)

		case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpAnd, OpOr, OpXor, OpShl, OpShr,
			OpCeq, OpClt, OpCgt:
			b := m.pop()
			a := m.pop()
			v, err := binaryOp(ins.Op, ins.T, a, b)
			if err != nil {
				return nil, m.errorf("%s", err)
			}
			m.push(v)

		case OpNeg, OpCompl:
			v, err := unaryOp(ins.Op, ins.T, m.pop())
			if err != nil {
				return nil, m.errorf("%s", err)
			}
			m.push(v)

		case OpConvert:
			v, err := convert(Tag(ins.A), ins.T, m.pop())
			if err != nil {
				return nil, m.errorf("%s", err)
			}
			m.push(v)

		case OpBox:
			m.push(Box(m.module.Types[ins.A], m.pop()))

		case OpUnbox:
			want := m.module.Types[ins.A]
			v := m.pop()
			b, ok := v.(*Boxed)
			if !ok {
				return nil, m.errorf("cannot unbox %s as %s", FormatValue(v), want)
			}
			if b.Type != want {
				return nil, m.errorf("cannot unbox %s as %s", b.Type, want)
			}
			m.push(b.Value)

		case OpNewArray:
			n, err := asIndex(m.pop())
			if err != nil {
				return nil, m.errorf("%s", err)
			}
			if n < 0 {
				return nil, m.errorf("negative array size %d", n)
			}
			m.push(NewArray(m.module.Types[ins.A], n))

		case OpLoadElem:
			idx := m.pop()
			target := m.pop()
			v, err := loadElem(target, idx)
			if err != nil {
				return nil, m.errorf("%s", err)
			}
			m.push(v)

		case OpStoreElem:
			v := m.pop()
			idx := m.pop()
			target := m.pop()
			if err := storeElem(target, idx, v); err != nil {
				return nil, m.errorf("%s", err)
			}
			m.push(v)

		case OpLength:
			switch x := m.pop().(type) {
			case *Array:
				m.push(int64(len(x.Items)))
			case string:
				m.push(int64(len([]rune(x))))
			case nil:
				return nil, m.errorf("length of null")
			default:
				return nil, m.errorf("length of %T", x)
			}

		case OpCall:
			if err := m.enter(int(ins.A)); err != nil {
				return nil, err
			}

		case OpCallNative:
			n := m.natives[ins.A]
			if n.Fn == nil {
				return nil, m.errorf("%s is not callable", m.module.Natives[ins.A])
			}
			args := make([]Value, n.Arity)
			for i := n.Arity - 1; i >= 0; i-- {
				args[i] = m.pop()
			}
			v, err := n.Fn(m, args)
			if err != nil {
				var exit *exitRequest
				if errors.As(err, &exit) {
					return nil, err
				}
				return nil, m.errorf("%s: %s", m.module.Natives[ins.A], err)
			}
			if n.Returns {
				m.push(v)
			}

		case OpJump:
			frame.IP = int(ins.A)

		case OpJumpTrue:
			cond, ok := m.pop().(bool)
			if !ok {
				return nil, m.errorf("branch on a non-bool value")
			}
			if cond {
				frame.IP = int(ins.A)
			}

		case OpReturn, OpReturnVoid:
			var result Value
			if ins.Op == OpReturn {
				result = m.pop()
			}
			m.leave()
			if m.fp == base {
				return result, nil
			}
			if ins.Op == OpReturn {
				m.push(result)
			}

		default:
			return nil, m.errorf("unknown opcode %s", ins.Op)
		}
	}
}

// ---------------------------------------------------------------------------
// Arrays and strings
// ---------------------------------------------------------------------------

func asIndex(v Value) (int, error) {
	switch x := v.(type) {
	case int64:
		return int(x), nil
	case uint64:
		return int(x), nil
	}
	return 0, fmt.Errorf("index of type %T", v)
}

func loadElem(target, idx Value) (Value, error) {
	i, err := asIndex(idx)
	if err != nil {
		return nil, err
	}
	switch x := target.(type) {
	case *Array:
		if i < 0 || i >= len(x.Items) {
			return nil, fmt.Errorf("index %d out of range [0, %d)", i, len(x.Items))
		}
		return x.Items[i], nil
	case string:
		runes := []rune(x)
		if i < 0 || i >= len(runes) {
			return nil, fmt.Errorf("index %d out of range [0, %d)", i, len(runes))
		}
		return runes[i], nil
	case nil:
		return nil, errors.New("index of null")
	}
	return nil, fmt.Errorf("cannot index %T", target)
}

func storeElem(target, idx, v Value) error {
	i, err := asIndex(idx)
	if err != nil {
		return err
	}
	arr, ok := target.(*Array)
	if !ok {
		if target == nil {
			return errors.New("index of null")
		}
		return fmt.Errorf("cannot store into %T", target)
	}
	if i < 0 || i >= len(arr.Items) {
		return fmt.Errorf("index %d out of range [0, %d)", i, len(arr.Items))
	}
	arr.Items[i] = v
	return nil
}
