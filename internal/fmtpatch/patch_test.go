package fmtpatch

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/x07dev/x07/internal/jcs"
)

func TestApplyAddReplaceRemove(t *testing.T) {
	doc, _ := jcs.Parse([]byte(`{"a":1,"list":[1,2,3]}`))
	out, err := Apply(doc, []Op{
		{Op: "replace", Path: "/a", Value: 2.0},
		{Op: "add", Path: "/b", Value: "new"},
		{Op: "add", Path: "/list/1", Value: "x"},
		{Op: "remove", Path: "/list/0"},
	}, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	m := out.(map[string]any)
	if m["a"] != 2.0 || m["b"] != "new" {
		t.Fatalf("unexpected map: %#v", m)
	}
	list := m["list"].([]any)
	want := []any{"x", json.Number("2"), json.Number("3")}
	if !reflect.DeepEqual(list, want) {
		t.Fatalf("got %#v want %#v", list, want)
	}
}

func TestApplyTestOpFailureAborts(t *testing.T) {
	doc, _ := jcs.Parse([]byte(`{"a":1}`))
	_, err := Apply(doc, []Op{
		{Op: "test", Path: "/a", Value: 2.0},
		{Op: "replace", Path: "/a", Value: 3.0},
	}, ApplyOptions{})
	if err == nil {
		t.Fatal("expected test op to fail")
	}
	ae, ok := err.(*ApplyError)
	if !ok || ae.Index != 0 {
		t.Fatalf("expected ApplyError at index 0, got %#v", err)
	}
}

func TestApplyMoveAndCopy(t *testing.T) {
	doc, _ := jcs.Parse([]byte(`{"a":{"x":1},"b":{}}`))
	out, err := Apply(doc, []Op{
		{Op: "copy", From: "/a/x", Path: "/b/x"},
		{Op: "move", From: "/a", Path: "/c"},
	}, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	m := out.(map[string]any)
	if _, ok := m["a"]; ok {
		t.Fatal("expected /a removed after move")
	}
	if m["c"].(map[string]any)["x"] != json.Number("1") {
		t.Fatalf("unexpected /c: %#v", m["c"])
	}
	if m["b"].(map[string]any)["x"] != json.Number("1") {
		t.Fatalf("unexpected /b: %#v", m["b"])
	}
}

func TestOriginalDocUnmodified(t *testing.T) {
	doc, _ := jcs.Parse([]byte(`{"a":1}`))
	orig := doc.(map[string]any)["a"]
	_, err := Apply(doc, []Op{{Op: "replace", Path: "/a", Value: 99.0}}, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if doc.(map[string]any)["a"] != orig {
		t.Fatal("Apply mutated the input document in place")
	}
}
