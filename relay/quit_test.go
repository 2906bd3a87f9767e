// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import "testing"

func TestContainsQuit(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		want  bool
	}{
		{"exact", ":leave:", true},
		{"with newline", ":leave:\n", true},
		{"embedded", "ls -la:leave:more", true},
		{"repeated", ":leave::leave:", true},
		{"absent", "echo hello\n", false},
		{"empty", "", false},
		{"prefix only", ":leave", false},
		{"suffix only", "leave:", false},
		{"different case", ":LEAVE:", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ContainsQuit([]byte(test.chunk)); got != test.want {
				t.Errorf("ContainsQuit(%q) = %v, want %v", test.chunk, got, test.want)
			}
		})
	}
}

func TestQuitTokenBytes(t *testing.T) {
	if string(QuitToken) != ":leave:" || len(QuitToken) != 7 {
		t.Fatalf("QuitToken = %q, want the 7 bytes \":leave:\"", QuitToken)
	}
}
