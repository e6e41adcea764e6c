package terminal

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadPassword_Env(t *testing.T) {
	t.Setenv(PasswordEnv, "hunter2")

	pw, err := ReadPassword(PasswordEnv, "Password: ")
	if err != nil {
		t.Fatalf("ReadPassword failed: %v", err)
	}
	if string(pw) != "hunter2" {
		t.Errorf("password = %q", pw)
	}
}

func TestReadNewPassword_Env(t *testing.T) {
	t.Setenv(NewPasswordEnv, "")

	pw, err := ReadNewPassword(NewPasswordEnv, "New password: ")
	if err != nil {
		t.Fatalf("ReadNewPassword failed: %v", err)
	}
	if len(pw) != 0 {
		t.Errorf("empty env value should give an empty password, got %q", pw)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes ", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		if got := Confirm(strings.NewReader(tt.input), &out, "Delete?"); got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Delete? [y/N]") {
			t.Errorf("prompt = %q", out.String())
		}
	}
}
