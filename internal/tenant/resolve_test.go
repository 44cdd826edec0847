package tenant

import "testing"

func TestSubdomainOf(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"acme.adcp.example.com", "acme"},
		{"adcp.example.com", ""},
		{"acme.adcp.example.com:8443", "acme"},
		{"localhost", ""},
	}
	for _, c := range cases {
		if got := subdomainOf(c.host); got != c.want {
			t.Errorf("subdomainOf(%q) = %q, want %q", c.host, got, c.want)
		}
	}
}
