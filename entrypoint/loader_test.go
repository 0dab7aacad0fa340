package entrypoint

import (
	"testing"

	"github.com/dop251/goja"
)

// domStub is the part of the browser the loader touches: one container
// (document.head) holding script elements, event dispatch and console.
const domStub = `
var dispatched = [];
var logged = [];

function CustomEvent(type, init) {
    this.type = type;
    this.detail = init ? init.detail : undefined;
}

function makeScript() {
    return {
        attrs: {},
        setAttribute: function (k, v) { this.attrs[k] = v; },
        getAttribute: function (k) {
            if (k === 'src' && this.src !== undefined) { return this.src; }
            return this.attrs[k] === undefined ? null : this.attrs[k];
        },
        remove: function () {
            var i = head.children.indexOf(this);
            if (i >= 0) { head.children.splice(i, 1); }
        }
    };
}

var head = {
    children: [],
    appendChild: function (el) { this.children.push(el); return el; },
    querySelectorAll: function (sel) {
        return this.children.filter(function (el) { return el.getAttribute('src') !== null; });
    }
};

var document = {
    head: head,
    createElement: function (tag) { return makeScript(); },
    dispatchEvent: function (ev) { dispatched.push(ev); return true; }
};

var window = {};
var console = { error: function () { logged.push(Array.prototype.slice.call(arguments)); } };
`

const (
	testComponent = "cart"
	testURL       = "https://cdn.example.com/assets/cart-A9.js"
)

func newDOM(t *testing.T) *goja.Runtime {
	t.Helper()
	vm := goja.New()
	if _, err := vm.RunString(domStub); err != nil {
		t.Fatalf("dom stub: %v", err)
	}
	return vm
}

// run evaluates src; pending promise jobs are drained before it returns.
func run(t *testing.T, vm *goja.Runtime, src string) goja.Value {
	t.Helper()
	v, err := vm.RunString(src)
	if err != nil {
		t.Fatalf("%s: %v", src, err)
	}
	return v
}

func count(t *testing.T, vm *goja.Runtime, expr string) int64 {
	t.Helper()
	return run(t, vm, expr).ToInteger()
}

func TestLoaderInsertsOnceAndDispatchesOnce(t *testing.T) {
	vm := newDOM(t)
	loader := string(Render(testComponent, testURL))

	run(t, vm, loader)
	run(t, vm, loader)

	if n := count(t, vm, "head.children.length"); n != 1 {
		t.Fatalf("scripts after two invocations = %d, want 1", n)
	}
	if n := count(t, vm, "dispatched.length"); n != 0 {
		t.Fatalf("dispatched before load = %d, want 0", n)
	}
	script := "head.children[0]"
	if got := run(t, vm, script+".getAttribute('src')").String(); got != testURL {
		t.Errorf("src = %q, want %q", got, testURL)
	}
	if got := run(t, vm, script+".getAttribute('type')").String(); got != "module" {
		t.Errorf("type = %q, want module", got)
	}
	if got := run(t, vm, script+".crossOrigin").String(); got != "" {
		t.Errorf("crossOrigin = %q, want empty", got)
	}

	run(t, vm, script+".onload()")

	if n := count(t, vm, "dispatched.length"); n != 1 {
		t.Fatalf("dispatched = %d, want 1", n)
	}
	if got := run(t, vm, "dispatched[0].type").String(); got != Event {
		t.Errorf("event type = %q, want %q", got, Event)
	}
	if got := run(t, vm, "dispatched[0].detail").String(); got != testComponent {
		t.Errorf("event detail = %q, want %q", got, testComponent)
	}

	// Once loaded, the script is found in the container: no insert, no event.
	run(t, vm, loader)
	if n := count(t, vm, "head.children.length"); n != 1 {
		t.Errorf("scripts after reload = %d, want 1", n)
	}
	if n := count(t, vm, "dispatched.length"); n != 1 {
		t.Errorf("dispatched after reload = %d, want 1", n)
	}
}

func TestLoaderSkipsScriptAlreadyPresent(t *testing.T) {
	vm := newDOM(t)
	run(t, vm, "var el = makeScript(); el.setAttribute('src', '"+testURL+"'); head.appendChild(el);")

	run(t, vm, string(Render(testComponent, testURL)))

	if n := count(t, vm, "head.children.length"); n != 1 {
		t.Fatalf("scripts = %d, want 1", n)
	}
	if n := count(t, vm, "dispatched.length"); n != 0 {
		t.Fatalf("dispatched = %d, want 0", n)
	}
	if n := count(t, vm, "logged.length"); n != 0 {
		t.Fatalf("logged = %d, want 0", n)
	}
}

func TestLoaderErrorRejectsWithoutEvent(t *testing.T) {
	vm := newDOM(t)
	loader := string(Render(testComponent, testURL))

	run(t, vm, loader)
	run(t, vm, "head.children[0].onerror(new Error('network down'))")

	if n := count(t, vm, "dispatched.length"); n != 0 {
		t.Fatalf("dispatched = %d, want 0", n)
	}
	if n := count(t, vm, "head.children.length"); n != 0 {
		t.Fatalf("failed script left in container: %d", n)
	}
	// The rejection reaches the loader's catch handler.
	if n := count(t, vm, "logged.length"); n != 1 {
		t.Fatalf("logged = %d, want 1", n)
	}
	if got := run(t, vm, "logged[0][0]").String(); got != Event {
		t.Errorf("logged[0][0] = %q, want %q", got, Event)
	}
	if got := run(t, vm, "logged[0][1]").String(); got != testComponent {
		t.Errorf("logged[0][1] = %q, want %q", got, testComponent)
	}

	// A failed request is forgotten; the next call tries again.
	run(t, vm, loader)
	if n := count(t, vm, "head.children.length"); n != 1 {
		t.Fatalf("scripts after retry = %d, want 1", n)
	}
	run(t, vm, "head.children[0].onload()")
	if n := count(t, vm, "dispatched.length"); n != 1 {
		t.Fatalf("dispatched after retry = %d, want 1", n)
	}
}
