package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"dhlx/pkg/ddl/scan"
	"dhlx/pkg/diag"
)

func TestModel_Detail(t *testing.T) {
	b, err := newBuild(defaultConfig(), diag.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := b.ip.RunSource("map.dhlx", `vertex a { x = 7; y = 0; }`, scan.DHLX); err != nil {
		t.Fatal(err)
	}
	m := newModel(b.ip, storeEntries(b.ip, ""))
	mustContain(t, m.View(), "1 objects")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if m.state != stateDetail {
		t.Fatal("enter must open the detail view")
	}
	mustContain(t, m.View(), "x : int = 7")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if next.(model).state != stateList {
		t.Fatal("esc must return to the list")
	}
}
