package compiler

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/tern/compiler/diag"
	"github.com/chazu/tern/vm"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func compileOK(t *testing.T, src string) *Result {
	t.Helper()
	res := Compile(src, Options{FileName: "test.tern"})
	if !res.OK() {
		t.Fatalf("compile failed:\n%s", res.Diagnostics)
	}
	return res
}

// run compiles src, runs it and returns its output and exit code.
func run(t *testing.T, src string, opts ...vm.Option) (string, int) {
	t.Helper()
	res := compileOK(t, src)
	var out bytes.Buffer
	m, err := vm.NewMachine(res.Module, append(opts, vm.WithOutput(&out))...)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	code, err := m.Run()
	if err != nil {
		t.Fatalf("run: %v\noutput so far: %q", err, out.String())
	}
	return out.String(), code
}

func expectOutput(t *testing.T, src, want string) {
	t.Helper()
	got, code := run(t, src)
	if code != 0 {
		t.Errorf("exit code = %d", code)
	}
	if got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}
}

// ---------------------------------------------------------------------------
// Programs
// ---------------------------------------------------------------------------

func TestFibonacci(t *testing.T) {
	expectOutput(t, `import std.io.println;
func fib(n: i32): i32 {
    if (n < 2) { return n; }
    return fib(n - 1) + fib(n - 2);
}
println(fib(15));
`, "610\n")
}

func TestLoops(t *testing.T) {
	expectOutput(t, `import std.io.println;
var total: i32 = 0;
for (var i = 0; i < 10; i += 1) {
    if (i % 2 == 1) { continue; }
    if (i == 8) { break; }
    total += i;
}
println(total);

var n = 5;
var fact: i64 = 1;
while (n > 0) {
    fact *= n;
    n -= 1;
}
println(fact);
`, "12\n120\n")
}

func TestStrings(t *testing.T) {
	expectOutput(t, `import std.io.println;
var name = "tern";
var s = "hello " + name + "!";
println(s);
println(s.length);
println(s[1]);
println(name == "tern");
println(name != "tern");
println("n=" + 5);
println(2.5 as string);
`, "hello tern!\n11\ne\ntrue\nfalse\nn=5\n2.5\n")
}

func TestArrays(t *testing.T) {
	expectOutput(t, `import std.io.println;
var a = new i32[5];
for (var i = 0; i < a.length; i += 1) {
    a[i] = i * i;
}
var sum: i64 = 0;
for (var i = 0; i < a.length; i += 1) {
    sum += a[i];
}
println(sum);
println(a);
`, "30\n[0, 1, 4, 9, 16]\n")
}

func TestCompoundIndexEvaluatesOnce(t *testing.T) {
	expectOutput(t, `import std.io.println;
var calls = 0;
var a = new i32[3];
func idx(): i32 {
    calls += 1;
    return 1;
}
a[idx()] += 10;
a[idx()] *= 3;
println(a[1]);
println(calls);
`, "30\n2\n")
}

func TestGlobalsInitializeInOrder(t *testing.T) {
	expectOutput(t, `import std.io.println;
var a: i32 = 2;
var b: i32 = a * 10;
func main() {
    println(b + a);
}
`, "22\n")
}

func TestConversions(t *testing.T) {
	expectOutput(t, `import std.io.println;
var x: i32 = 300;
println(x as u8);
println((-1) as u32);
println(7 / 2);
println(7.0 / 2);
println(("41" as i32) + 1);
var c = 'a';
println((c as i32 + 1) as char);
var o: object = x;
println((o as i32) * 2);
`, "44\n4294967295\n3\n3.5\n42\nb\n600\n")
}

func TestOverloadsAtRunTime(t *testing.T) {
	expectOutput(t, `import std.math.abs;
import std.io.println;
println(abs(-5));
println(abs(-2.5));
var big: i64 = -9000000000;
println(abs(big));
`, "5\n2.5\n9000000000\n")
}

func TestShadowing(t *testing.T) {
	expectOutput(t, `import std.io.println;
func f(): i32 {
    var x = 1;
    {
        var x = 2;
        x += 1;
        println(x);
    }
    return x;
}
println(f());
`, "3\n1\n")
}

func TestShortCircuit(t *testing.T) {
	expectOutput(t, `import std.io.println;
var calls = 0;
func touch(v: bool): bool {
    calls += 1;
    return v;
}
var a = new i32[2];
var i = 5;
if (i < a.length && a[i] > 0) {
    println("in range");
} else {
    println("skipped");
}
println(false && touch(true));
println(true || touch(false));
println(true && touch(true));
println(false || touch(false));
println(calls);

var k = 0;
while (k < a.length && a[k] == 0) {
    k += 1;
}
println(k);
`, "skipped\nfalse\ntrue\ntrue\nfalse\n2\n2\n")
}

func TestShortCircuitKeepsArgumentOrder(t *testing.T) {
	expectOutput(t, `import std.io.println;
var trace = "";
func mark(n: i32): i32 {
    trace = trace + n;
    return n;
}
func pick(x: i32, ok: bool): i32 {
    return x;
}
println(pick(mark(1), mark(2) > 0 && mark(3) > 0));
println(trace);
`, "1\n123\n")
}

func TestUninitializedLocalsResetEachIteration(t *testing.T) {
	expectOutput(t, `import std.io.println;
for (var i = 0; i < 3; i += 1) {
    var s: i32;
    var t: string;
    s += i;
    t = t + i;
    println(s);
    println(t);
}
`, "0\n0\n1\n1\n2\n2\n")
}

func TestInputAndExit(t *testing.T) {
	src := `import std.io.input;
import std.io.println;
import std.sys.exit;
var name = input();
println("hi " + name);
exit(4);
println("unreached");
`
	got, code := run(t, src, vm.WithInput(strings.NewReader("bob\n")))
	if got != "hi bob\n" || code != 4 {
		t.Errorf("output %q, code %d", got, code)
	}
}

func TestRuntimeFault(t *testing.T) {
	res := compileOK(t, `import std.io.println;
var z = 0;
println(1 / z);
`)
	m, err := vm.NewMachine(res.Module, vm.WithOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	code, err := m.Run()
	var rerr *vm.RuntimeError
	if code != 1 || !errors.As(err, &rerr) || !strings.Contains(rerr.Message, "division by zero") {
		t.Errorf("Run = %d, %v", code, err)
	}
}

func TestImageRoundTripRuns(t *testing.T) {
	res := compileOK(t, `import std.io.println;
var greeting = "from an image";
println(greeting);
`)
	data, err := vm.EncodeImage(res.Module)
	if err != nil {
		t.Fatal(err)
	}
	mod, err := vm.DecodeImage(data)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	m, err := vm.NewMachine(mod, vm.WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Run(); err != nil || out.String() != "from an image\n" {
		t.Errorf("output %q, err %v", out.String(), err)
	}
}

func TestExamples(t *testing.T) {
	files, err := filepath.Glob("../examples/*/main.tern")
	if err != nil || len(files) == 0 {
		t.Fatalf("no examples found: %v", err)
	}
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		res := Compile(string(src), Options{FileName: f, WarningsAsErrors: true})
		if !res.OK() {
			t.Errorf("%s:\n%s", f, res.Diagnostics)
		}
	}

	src, err := os.ReadFile("../examples/primes/main.tern")
	if err != nil {
		t.Fatal(err)
	}
	expectOutput(t, string(src),
		"2 3 5 7 11 13 17 19 23 29 31 37 41 43 47 53 59 61 67 71 73 79 83 89 97 \n"+
			"found 25 primes below 100\n")
}

// ---------------------------------------------------------------------------
// Pipeline gating
// ---------------------------------------------------------------------------

func TestSyntaxErrorsStopEarly(t *testing.T) {
	res := Compile("var = ;", Options{})
	if res.OK() || res.Bound != nil || res.Lowered != nil {
		t.Error("binding should not run after syntax errors")
	}
	if res.Diagnostics.Count(diag.CodeSyntax) == 0 {
		t.Errorf("diagnostics = %s", res.Diagnostics)
	}
}

func TestBindErrorsSuppressCodegen(t *testing.T) {
	res := Compile(`var x: i32 = "s";`, Options{})
	if res.OK() || res.Module != nil {
		t.Fatal("a module was produced despite errors")
	}
	if res.Bound == nil || res.Lowered == nil {
		t.Error("bound and lowered forms should be available to tooling")
	}
	if res.Diagnostics.Count(diag.CodeType) != 1 {
		t.Errorf("diagnostics = %s", res.Diagnostics)
	}
}

func TestAssignToLiteral(t *testing.T) {
	res := Compile("1 = 2;", Options{})
	items := res.Diagnostics.Items()
	if len(items) != 1 || items[0].Code != diag.CodeAssignment {
		t.Errorf("diagnostics = %s", res.Diagnostics)
	}
}

func TestAmbiguousCall(t *testing.T) {
	res := Compile(`func f(a: i32) {}
func f(a: i64) {}
var s: i16 = 1;
f(s);
`, Options{})
	items := res.Diagnostics.Items()
	if len(items) != 1 || items[0].Code != diag.CodeType || !strings.Contains(items[0].Message, "ambiguous") {
		t.Errorf("diagnostics = %s", res.Diagnostics)
	}
}

func TestWarningsAsErrors(t *testing.T) {
	src := `func main() { var unused = 1; }`

	res := Compile(src, Options{})
	if !res.OK() || res.Diagnostics.Count(diag.CodeUnused) != 1 {
		t.Fatalf("warnings alone must not stop code generation: %s", res.Diagnostics)
	}

	res = Compile(src, Options{WarningsAsErrors: true})
	if res.OK() {
		t.Fatal("promoted warning should suppress the module")
	}
	if d := res.Diagnostics.Items()[0]; d.Severity != diag.Error {
		t.Errorf("severity = %v", d.Severity)
	}
}

func TestModuleNaming(t *testing.T) {
	tests := []struct {
		opts Options
		want string
	}{
		{Options{}, "main"},
		{Options{FileName: "dir/prog.tern"}, "prog"},
		{Options{FileName: "dir/prog.tern", ModuleName: "app"}, "app"},
	}
	for _, tt := range tests {
		res := Compile("func main() {}", tt.opts)
		if !res.OK() || res.Module.Name != tt.want {
			t.Errorf("%+v: module name = %v", tt.opts, res.Module)
		}
	}
}

func TestNoEntryPoint(t *testing.T) {
	res := compileOK(t, `func helper(): i32 { return 1; }`)
	if res.Module.Entry != -1 {
		t.Errorf("entry = %d, want none", res.Module.Entry)
	}
}
