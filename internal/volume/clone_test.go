package volume

import "testing"

func TestDiscoverTagsMarksLiveSnapshotVolumes(t *testing.T) {
	tags := DiscoverTags([]string{"db_data", "media"}, map[string]bool{"db_data": true})

	if !tags["db_data"].RequiresLiveSnapshot {
		t.Error("expected db_data to require a live snapshot")
	}
	if tags["media"].RequiresLiveSnapshot {
		t.Error("expected media to not require a live snapshot")
	}
	if tags["db_data"].DumpImage == "" {
		t.Error("expected a dump image to be set")
	}
}

func TestJoinShell(t *testing.T) {
	got := joinShell([]string{"pg_dumpall", "-U", "postgres", ">", "/out.sql"})
	want := "pg_dumpall -U postgres > /out.sql"
	if got != want {
		t.Errorf("joinShell = %q, want %q", got, want)
	}
}
