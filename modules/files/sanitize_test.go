package files

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain name", "photo.png", "photo.png"},
		{"spaces become underscores", "my holiday photo.png", "my_holiday_photo.png"},
		{"path stripped", "../../etc/passwd", "passwd"},
		{"windows path stripped", `C:\Users\me\doc.pdf`, "doc.pdf"},
		{"special characters dropped", "inv@oi!ce#(1).pdf", "invoice1.pdf"},
		{"unicode dropped", "résumé.pdf", "rsum.pdf"},
		{"empty falls back", "", "upload"},
		{"only junk falls back", "???!!!", "upload"},
		{"leading dots trimmed", "...hidden", "hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
