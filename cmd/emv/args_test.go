package main

import "testing"

func TestSplitPath(t *testing.T) {
	cases := []struct {
		in   string
		dir  string
		name string
	}{
		{"a.txt", "", "a.txt"},
		{"trunk/a.txt", "trunk", "a.txt"},
		{"trunk/nested/a.txt", "trunk/nested", "a.txt"},
		{"", "", ""},
	}
	for _, c := range cases {
		dir, name := splitPath(c.in)
		if dir != c.dir || name != c.name {
			t.Errorf("splitPath(%q) = (%q, %q), want (%q, %q)", c.in, dir, name, c.dir, c.name)
		}
	}
}

func TestSplitKV(t *testing.T) {
	name, val, ok := splitKV("author=jane")
	if !ok || name != "author" || val != "jane" {
		t.Errorf("splitKV(author=jane) = (%q, %q, %v)", name, val, ok)
	}
	if _, _, ok := splitKV("no-equals-sign"); ok {
		t.Errorf("splitKV(no-equals-sign) should report ok=false")
	}
	name, val, ok = splitKV("k=a=b")
	if !ok || name != "k" || val != "a=b" {
		t.Errorf("splitKV(k=a=b) = (%q, %q, %v), want (k, a=b, true)", name, val, ok)
	}
}
