package redis

import (
	"path"
	"strings"
	"testing"
)

func TestGenerateCacheKey_MatchesScopePattern(t *testing.T) {
	key := GenerateCacheKey("sockshop.dev.carts", "n50:c")
	if !strings.HasPrefix(key, "evaldash:grid:sockshop.dev.carts:n50:c:") {
		t.Fatalf("unexpected key: %s", key)
	}

	matched, err := path.Match(ScopePattern("sockshop.dev.carts"), key)
	if err != nil {
		t.Fatalf("path.Match error = %v", err)
	}
	if !matched {
		t.Fatalf("pattern %s does not match %s", ScopePattern("sockshop.dev.carts"), key)
	}

	other, _ := path.Match(ScopePattern("sockshop.prod.carts"), key)
	if other {
		t.Fatalf("pattern of another scope must not match %s", key)
	}
}
