package ctxrt

import (
	"testing"

	"github.com/a-h/pkgrun/module"
	"github.com/a-h/pkgrun/pkgpath"
)

func TestEnterLeaveDispatchesEvents(t *testing.T) {
	c := New(nil, nil, nil)
	var events []EventKind
	c.Subscribe(EventEnter, func(e Event) { events = append(events, e.Kind) })
	c.Subscribe(EventLeave, func(e Event) { events = append(events, e.Kind) })

	if err := c.Enter(nil); err != nil {
		t.Fatalf("Enter error: %v", err)
	}
	if err := c.Enter(nil); err == nil {
		t.Error("expected second Enter without Leave to fail")
	}
	if err := c.Leave(); err != nil {
		t.Fatalf("Leave error: %v", err)
	}
	if len(events) != 2 || events[0] != EventEnter || events[1] != EventLeave {
		t.Errorf("events = %v", events)
	}
}

func TestSetMainRejectsSecondModule(t *testing.T) {
	c := New(nil, nil, nil)
	req := module.New("main", pkgpath.NewFS("/"))
	m1 := module.New(pkgpath.NewFS("/a.py"), pkgpath.NewFS("/a.py"), req, nil)
	m2 := module.New(pkgpath.NewFS("/b.py"), pkgpath.NewFS("/b.py"), req, nil)

	if err := c.SetMain(m1); err != nil {
		t.Fatalf("SetMain error: %v", err)
	}
	if err := c.SetMain(m1); err != nil {
		t.Errorf("re-setting the same main module should be a no-op, got %v", err)
	}
	if err := c.SetMain(m2); err == nil {
		t.Error("expected SetMain to reject a second distinct main module")
	}
}

func TestCurrentModuleStack(t *testing.T) {
	c := New(nil, nil, nil)
	req := module.New("m", pkgpath.NewFS("/"))
	m := module.New(pkgpath.NewFS("/a.py"), pkgpath.NewFS("/a.py"), req, nil)

	if c.Current() != nil {
		t.Fatal("expected nil current module before any push")
	}
	pop := c.PushCurrent(m)
	if c.Current() != m {
		t.Fatal("expected pushed module to be current")
	}
	pop()
	if c.Current() != nil {
		t.Fatal("expected nil current module after pop")
	}
}

func TestModuleCacheLifecycle(t *testing.T) {
	c := New(nil, nil, nil)
	req := module.New("m", pkgpath.NewFS("/"))
	m := module.New(pkgpath.NewFS("/a.py"), pkgpath.NewFS("/a.py"), req, nil)

	c.CacheSet("/a.py", m)
	got, ok := c.CacheGet("/a.py")
	if !ok || got != m {
		t.Fatal("expected cached module to be retrievable")
	}
	c.CacheDelete("/a.py")
	if _, ok := c.CacheGet("/a.py"); ok {
		t.Fatal("expected module to be gone after CacheDelete")
	}
}
