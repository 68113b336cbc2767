package shell

import (
	"reflect"
	"testing"
)

func TestStripQuotes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no quotes", "rm -rf /", "rm -rf /"},
		{"double quoted payload", `echo "rm -rf /"`, "echo "},
		{"single quoted payload", `echo 'rm -rf /'`, "echo "},
		{"mixed quotes", `grep "foo" 'bar' baz`, "grep   baz"},
		{"escaped double quote", `echo "a\"b" tail`, "echo  tail"},
		{"single quotes ignore escapes", `echo 'a\' tail`, "echo  tail"},
		{"unclosed double quote", `echo "never closed`, "echo "},
		{"unclosed single quote", `echo 'never closed`, "echo "},
		{"adjacent quoted regions", `echo "a"'b'`, "echo "},
		{"empty", "", ""},
		{"quote only content", `"rm -rf /"`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripQuotes(tt.in); got != tt.want {
				t.Errorf("StripQuotes(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single command", "ls -la", []string{"ls -la"}},
		{"and chain", "echo hi && rm -rf /", []string{"echo hi", "rm -rf /"}},
		{"or chain", "true || rm -rf /", []string{"true", "rm -rf /"}},
		{"semicolon", "cd /tmp; rm -rf .", []string{"cd /tmp", "rm -rf ."}},
		{"pipe", "cat f | grep x", []string{"cat f", "grep x"}},
		{"operator inside double quotes", `echo "a && b"`, []string{`echo "a && b"`}},
		{"operator inside single quotes", `echo 'a ; b'`, []string{`echo 'a ; b'`}},
		{"operator inside subshell", "(cd /x && make)", []string{"(cd /x && make)"}},
		{"operator inside substitution", "echo $(ls | wc -l)", []string{"echo $(ls | wc -l)"}},
		{"split after subshell", "(a && b) ; c", []string{"(a && b)", "c"}},
		{"background ampersand kept", "sleep 1 & echo hi", []string{"sleep 1 & echo hi"}},
		{"empty segments dropped", "a ;; b", []string{"a", "b"}},
		{"mixed operators", "a && b | c ; d", []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Segments(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Segments(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSubstitutions(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"none", "echo hi", nil},
		{"dollar paren", "echo $(rm -rf /)", []string{"rm -rf /"}},
		{"nested", "echo $(a $(b c))", []string{"a $(b c)", "b c"}},
		{"backticks", "echo `whoami`", []string{"whoami"}},
		{"dollar and backtick", "echo $(id) `hostname`", []string{"id", "hostname"}},
		{"unbalanced dropped", "echo $(never closed", nil},
		{"unpaired backtick dropped", "echo ` half", nil},
		{"two backtick pairs", "`a` and `b`", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Substitutions(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Substitutions(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
