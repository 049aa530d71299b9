package s3

import "testing"

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "uploads/user/form.png", want: "uploads/user/form.png"},
		{name: "simple prefix", prefix: "root", key: "uploads/user/form.png", want: "root/uploads/user/form.png"},
		{name: "prefix trailing slash", prefix: "root/", key: "uploads/user/form.png", want: "root/uploads/user/form.png"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/uploads/user/form.png", want: "root/uploads/user/form.png"},
		{name: "nested prefix", prefix: "root/sub", key: "uploads/user/form.png", want: "root/sub/uploads/user/form.png"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}
