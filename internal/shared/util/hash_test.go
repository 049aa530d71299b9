package util

import "testing"

func TestHashUserKey(t *testing.T) {
	guest := HashUserKey("guest:local-tester")
	if guest != HashUserKey("guest:local-tester") {
		t.Fatalf("hash not stable: %s", guest)
	}
	if guest == HashUserKey("guest:someone-else") {
		t.Fatal("distinct users collided")
	}
	if len(guest) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(guest))
	}
	for _, ch := range guest {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	got, err := SanitizeFileName("  dir/sub\\form.png ")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if got != "dir_sub_form.png" {
		t.Fatalf("got %q", got)
	}

	if _, err := SanitizeFileName("../../etc/passwd"); err == nil {
		t.Fatal("traversal name accepted")
	}
	if _, err := SanitizeFileName("   "); err == nil {
		t.Fatal("blank name accepted")
	}
}
