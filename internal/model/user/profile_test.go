package user

import "testing"

func TestDisplayNameFallback(t *testing.T) {
	if got := (Profile{}).DisplayName(); got != DefaultDisplayName {
		t.Fatalf("expected %q, got %q", DefaultDisplayName, got)
	}
	if got := (Profile{Name: "Asha"}).DisplayName(); got != "Asha" {
		t.Fatalf("expected Asha, got %q", got)
	}
}

func TestProfileUpdateApply(t *testing.T) {
	bio := "final year, CSE"
	p := Profile{Bio: DefaultBio, PreferredModel: DefaultPreferredModel, EmergencyContact: "mom"}

	update := ProfileUpdate{Bio: &bio}
	if update.Empty() {
		t.Fatal("update with bio should not be empty")
	}
	update.Apply(&p)

	if p.Bio != bio {
		t.Fatalf("bio not applied: %q", p.Bio)
	}
	if p.EmergencyContact != "mom" || p.PreferredModel != DefaultPreferredModel {
		t.Fatalf("nil fields must be left untouched: %+v", p)
	}
	if !(ProfileUpdate{}).Empty() {
		t.Fatal("zero update should be empty")
	}
}
