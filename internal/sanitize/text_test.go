package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text is kept", input: "Reunião de equipe", want: "Reunião de equipe"},
		{name: "tags are removed", input: "<b>Almoço</b> com <i>clientes</i>", want: "Almoço com clientes"},
		{name: "script content is dropped", input: "oi<script>alert(1)</script>", want: "oi"},
		{name: "ampersand survives", input: "Ana & Bia", want: "Ana & Bia"},
		{name: "entity text is stored decoded", input: "R&amp;D", want: "R&D"},
		{name: "whitespace is trimmed", input: "  sala 3  ", want: "sala 3"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
