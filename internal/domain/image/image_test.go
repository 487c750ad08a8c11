package image

import "testing"

func TestPayload(t *testing.T) {
	tests := []struct {
		ref  Ref
		want string
	}{
		{"data:image/png;base64,QUJD", "QUJD"},
		{"https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{"data:image/png;base64,", ""},
	}
	for _, tc := range tests {
		if got := tc.ref.Payload(); got != tc.want {
			t.Errorf("Payload(%q) = %q, want %q", tc.ref, got, tc.want)
		}
	}
}

func TestMediaType(t *testing.T) {
	if got := Ref("data:image/jpeg;base64,AAAA").MediaType(); got != "image/jpeg" {
		t.Errorf("MediaType() = %q", got)
	}
	if got := Ref("/sample-found/item-1.svg").MediaType(); got != "" {
		t.Errorf("MediaType() = %q, want empty", got)
	}
}

func TestSameImage(t *testing.T) {
	tests := []struct {
		name string
		a, b Ref
		want bool
	}{
		{"identical refs", "/img/a.svg", "/img/a.svg", true},
		{"same payload different prefix", "data:image/png;base64,QUJD", "data:image/jpeg;base64,QUJD", true},
		{"different payload", "data:image/png;base64,QUJD", "data:image/png;base64,REVG", false},
		{"empty payloads", "data:image/png;base64,", "data:image/jpeg;base64,", false},
		{"one empty", "", "data:image/png;base64,QUJD", false},
		{"both empty", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SameImage(tc.a, tc.b); got != tc.want {
				t.Errorf("SameImage(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
