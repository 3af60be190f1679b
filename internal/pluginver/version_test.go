package pluginver

import (
	"reflect"
	"testing"
)

func TestParseAPIVersion(t *testing.T) {
	v, err := ParseAPIVersion("3.1")
	if err != nil {
		t.Fatalf("ParseAPIVersion failed: %v", err)
	}
	if v.Major != 3 || v.Minor != 1 {
		t.Errorf("unexpected version: %+v", v)
	}

	for _, bad := range []string{"", "3", "3.x", "a.b"} {
		if _, err := ParseAPIVersion(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestCompatible(t *testing.T) {
	host := []string{"3.0", "3.1"}

	cases := []struct {
		plugin []string
		want   bool
	}{
		{[]string{"3.0"}, true},
		{[]string{"2.0", "3.1"}, true},
		{[]string{"2.0"}, false},
		{[]string{"4.0"}, false},
		{[]string{}, false},
		{[]string{"bogus", "3.0"}, true},
	}
	for _, tc := range cases {
		if got := Compatible(tc.plugin, host); got != tc.want {
			t.Errorf("Compatible(%v) = %v, want %v", tc.plugin, got, tc.want)
		}
	}
}

func TestSortTagsSemver(t *testing.T) {
	tags := []string{"v1.2.0", "v1.10.0", "v1.9.1", "not-a-version"}
	got := SortTags(tags, SchemeSemver)
	want := []string{"v1.10.0", "v1.9.1", "v1.2.0", "not-a-version"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortTags = %v, want %v", got, want)
	}
}

func TestSortTagsCalver(t *testing.T) {
	tags := []string{"2023.01.15", "2024.06.01", "2023.12.31"}
	got := SortTags(tags, SchemeCalver)
	if got[0] != "2024.06.01" {
		t.Errorf("newest calver tag should sort first, got %v", got)
	}
}

func TestNewerTag(t *testing.T) {
	tags := []string{"v1.0.0", "v1.1.0", "v2.0.0"}

	if got := NewerTag(tags, "v1.1.0", SchemeSemver); got != "v2.0.0" {
		t.Errorf("NewerTag = %q, want v2.0.0", got)
	}
	if got := NewerTag(tags, "v2.0.0", SchemeSemver); got != "" {
		t.Errorf("NewerTag = %q, want none", got)
	}
	// Mixed v-prefix handling.
	if got := NewerTag([]string{"1.5.0"}, "v1.0.0", SchemeSemver); got != "1.5.0" {
		t.Errorf("NewerTag = %q, want 1.5.0", got)
	}
}

func TestSchemePattern(t *testing.T) {
	if p := SchemePattern(SchemeSemver); p == nil || !p.MatchString("v1.2.3") {
		t.Error("semver pattern should match v1.2.3")
	}
	if p := SchemePattern(SchemeCalver); p == nil || !p.MatchString("2024.01.01") {
		t.Error("calver pattern should match 2024.01.01")
	}
	if p := SchemePattern("regex:^rel-"); p == nil || !p.MatchString("rel-5") {
		t.Error("regex scheme should compile and match")
	}
	if p := SchemePattern("regex:("); p != nil {
		t.Error("invalid regex scheme should return nil")
	}
	if p := SchemePattern(""); p != nil {
		t.Error("empty scheme should return nil")
	}
}
