package variables

import (
	"testing"
)

func TestMemoryStore_SetGet(t *testing.T) {
	store := FromMap(nil)
	store.Set("project_id", "my-proj")
	store.Set("STORAGE_LOGIN", "user1")

	value, ok := store.Get("PROJECT_ID")
	if !ok {
		t.Fatal("expected to find 'PROJECT_ID' key")
	}
	if value != "my-proj" {
		t.Errorf("expected 'my-proj', got %q", value)
	}

	value, ok = store.Get(" storage_login ")
	if !ok {
		t.Fatal("expected to find 'storage_login' key")
	}
	if value != "user1" {
		t.Errorf("expected 'user1', got %q", value)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := FromMap(nil)
	store.Set("email", "e@x.com")

	value, ok := store.Get("password")
	if ok {
		t.Errorf("expected ok=false for missing key, got ok=true with value %q", value)
	}
	if value != "" {
		t.Errorf("expected empty string for missing key, got %q", value)
	}
}

func TestMemoryStore_EmptyValueIsPresent(t *testing.T) {
	store := FromMap(nil)
	store.Set("password", "")

	value, ok := store.Get("password")
	if !ok || value != "" {
		t.Errorf("Get(password) = (%q, %v), want (\"\", true)", value, ok)
	}
}

func TestFromMapNormalizesNames(t *testing.T) {
	source := map[string]string{
		"Project_ID": "p",
		" email ":    "e@x.com",
	}
	store := FromMap(source)

	if store.Len() != 2 {
		t.Fatalf("expected 2 values, got %d", store.Len())
	}
	if value, ok := store.Get("project_id"); !ok || value != "p" {
		t.Errorf("Get(project_id) = (%q, %v), want (\"p\", true)", value, ok)
	}

	source["Project_ID"] = "modified"
	if value, _ := store.Get("PROJECT_ID"); value != "p" {
		t.Errorf("store was affected by modification to source map, got %q", value)
	}
}

func TestMemoryStore_Merge(t *testing.T) {
	store := FromMap(nil)
	store.Set("storage_login", "from-flag")

	fileValues := map[string]string{
		"STORAGE_LOGIN":    "from-file",
		"storage_password": "pw",
	}

	merged := store.Merge(fileValues)

	expected := map[string]string{
		"storage_login":    "from-flag",
		"storage_password": "pw",
	}
	if len(merged) != len(expected) {
		t.Fatalf("expected %d keys in merged result, got %d: %v", len(expected), len(merged), merged)
	}
	for key, want := range expected {
		if got, ok := merged[key]; !ok || got != want {
			t.Errorf("expected merged[%q]=%q, got %q (ok=%v)", key, want, got, ok)
		}
	}
}
