package copyjob

import (
	"testing"

	"github.com/Azure/cosmos-explorer-sub010/internal/resourceid"
)

const (
	acctA = "/subscriptions/s/resourceGroups/rg/providers/Microsoft.DocumentDB/databaseAccounts/a"
	acctB = "/subscriptions/s/resourceGroups/rg/providers/Microsoft.DocumentDB/databaseAccounts/b"
)

func TestParseMigrationType(t *testing.T) {
	t.Parallel()

	cases := map[string]MigrationType{"": Offline, "offline": Offline, " Online ": Online, "ONLINE": Online}
	for in, want := range cases {
		got, err := ParseMigrationType(in)
		if err != nil {
			t.Fatalf("ParseMigrationType(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseMigrationType(%q) = %q want %q", in, got, want)
		}
	}
	if _, err := ParseMigrationType("hybrid"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestCloneDoesNotShareCapabilities(t *testing.T) {
	t.Parallel()

	s := State{Source: Source{Account: resourceid.AccountRef{ResourceID: acctA, Capabilities: []string{"X"}}}}
	c := s.Clone()
	c.Source.Account.Capabilities[0] = "Y"
	if s.Source.Account.Capabilities[0] != "X" {
		t.Fatalf("original capabilities = %v", s.Source.Account.Capabilities)
	}
}

func TestCrossAccount(t *testing.T) {
	t.Parallel()

	s := State{
		Source: Source{Account: resourceid.AccountRef{ResourceID: acctA}},
		Target: Target{Account: resourceid.AccountRef{ResourceID: acctA}},
	}
	if s.CrossAccount() {
		t.Fatal("same account reported as cross-account")
	}
	s.Target.Account.ResourceID = acctB
	if !s.CrossAccount() {
		t.Fatal("different accounts reported as intra-account")
	}
	s.Target.Account.ResourceID = ""
	if !s.CrossAccount() {
		t.Fatal("missing target should count as cross-account")
	}
}

func TestContainers(t *testing.T) {
	t.Parallel()

	s := State{
		Source: Source{DatabaseID: "db1", ContainerID: "c1"},
		Target: Target{DatabaseID: "db2"},
	}
	if got := s.Containers(); got != nil {
		t.Fatalf("Containers() = %v want nil", got)
	}
	s.Target.ContainerID = "c2"
	got := s.Containers()
	if len(got) != 1 || got[0].SourceContainerName != "c1" || got[0].TargetDatabaseName != "db2" {
		t.Fatalf("Containers() = %+v", got)
	}
}
