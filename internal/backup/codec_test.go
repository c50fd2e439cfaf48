package backup_test

import (
	"testing"
	"time"

	"github.com/rpggio/plantrack/internal/backup"
	"github.com/rpggio/plantrack/internal/domain/project"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocument(t *testing.T) {
	doc, err := backup.Decode([]byte(`{"projects":[{"id":"p1","name":"A"}],"templates":[]}`))
	require.NoError(t, err)
	require.Len(t, doc.Projects, 1)
	require.NotNil(t, doc.Templates)
	require.Empty(t, doc.Templates)
}

func TestDecodeEmptyCollections(t *testing.T) {
	doc, err := backup.Decode([]byte(`{"projects":[],"templates":[]}`))
	require.NoError(t, err)
	require.NotNil(t, doc.Projects)
	require.NotNil(t, doc.Templates)
}

func TestDecodeWithoutTemplatesKeepsCurrent(t *testing.T) {
	doc, err := backup.Decode([]byte(`{"projects":[]}`))
	require.NoError(t, err)
	require.Nil(t, doc.Templates)
}

func TestDecodeLegacyArray(t *testing.T) {
	doc, err := backup.Decode([]byte(` [{"id": 17, "name": "old", "activities": []}] `))
	require.NoError(t, err)
	require.Equal(t, project.ID("17"), doc.Projects[0].ID)
	require.Nil(t, doc.Templates)
}

func TestDecodeMalformed(t *testing.T) {
	for _, input := range []string{
		``,
		`not json`,
		`{"projects": [`,
		`{"templates": []}`,
		`{"projects": null}`,
		`"projects"`,
		`{"projects": {"id": "p"}}`,
	} {
		_, err := backup.Decode([]byte(input))
		require.ErrorIs(t, err, backup.ErrMalformed, input)
	}
}

func TestEncodeAlwaysWritesArrays(t *testing.T) {
	data, err := backup.Encode(nil, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"projects":[],"templates":[]}`, string(data))
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, time.March, 5, 23, 0, 0, 0, time.UTC)
	require.Equal(t, "PM_System_Backup_20260305.json", backup.FileName(at))
}
