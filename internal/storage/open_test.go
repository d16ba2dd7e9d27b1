package storage

import (
	"context"
	"testing"

	"moodboard/internal/config"
)

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			st, ix, err := Open(ctx, config.StorageConfig{Backend: backend, DataDir: t.TempDir()}, config.Secrets{})
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer ix.Close()
			defer st.Close()
			if err := st.Write(ctx, "b1", []byte(`{"ok":true}`)); err != nil {
				t.Fatal(err)
			}
			got, err := st.Read(ctx, "b1")
			if err != nil || string(got) != `{"ok":true}` {
				t.Fatalf("read = %s, %v", got, err)
			}
		})
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, _, err := Open(context.Background(), config.StorageConfig{Backend: "tape", DataDir: t.TempDir()}, config.Secrets{}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
