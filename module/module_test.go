package module

import (
	"testing"
	"time"

	"github.com/a-h/pkgrun/pkgpath"
)

func TestRequestCopyOverrides(t *testing.T) {
	base := New("./util", pkgpath.NewFS("/proj"))
	base.SearchPath = []pkgpath.Path{pkgpath.NewFS("/proj/packages")}

	derived := base.Copy(WithString("./other"), WithIsMain(true))

	if base.String != "./util" {
		t.Errorf("original request mutated: String = %q", base.String)
	}
	if derived.String != "./other" {
		t.Errorf("derived.String = %q, want ./other", derived.String)
	}
	if !derived.IsMain {
		t.Error("derived.IsMain = false, want true")
	}
	if derived.CurrentDir.String() != base.CurrentDir.String() {
		t.Error("derived.CurrentDir should inherit from base")
	}
	derived.SearchPath[0] = pkgpath.NewFS("/elsewhere")
	if base.SearchPath[0].String() != "/proj/packages" {
		t.Error("SearchPath slice shared between base and derived copy")
	}
}

func TestModuleDirectoryAndMarkExecuted(t *testing.T) {
	req := New("./m", pkgpath.NewFS("/proj"))
	m := New(pkgpath.NewFS("/proj/m.py"), pkgpath.NewFS("/proj/m.py"), req, nil)

	if got, want := m.Directory().String(), "/proj"; got != want {
		t.Errorf("Directory() = %q, want %q", got, want)
	}

	now := time.Unix(1000, 0)
	m.MarkExecuted("exported-value", now)
	if m.Exports != "exported-value" {
		t.Errorf("Exports = %v", m.Exports)
	}
	if !m.ExecMTime.Equal(now) {
		t.Errorf("ExecMTime = %v, want %v", m.ExecMTime, now)
	}
}
