package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convohub/convohub-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func attachmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"seq", "id", "conversation_id", "user_id", "filename", "original_filename",
		"content_type", "detected_content_type", "attachment_type", "size_bytes",
		"content_hash", "storage_path", "storage_backend", "status", "activity",
		"virus_scanned", "extra_metadata", "error_message",
		"created_at", "updated_at", "deleted_at",
	})
}

func TestAttachmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttachmentRepository(db)
	mock.ExpectExec("INSERT INTO attachments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	a := &models.Attachment{
		ConversationID: "c1",
		UserID:         "u1",
		Filename:       "report.pdf",
		ContentType:    "application/pdf",
		AttachmentType: models.AttachmentTypeDocument,
		ContentHash:    models.PendingContentHash,
		Status:         models.AttachmentStatusPending,
		Activity:       models.AttachmentActivityActive,
	}
	require.NoError(t, repo.Create(context.Background(), a))
	assert.NotEmpty(t, a.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentRepositoryFindByHash(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttachmentRepository(db)
	now := time.Now()
	rows := attachmentRows().AddRow(
		int64(1), "a1", "c1", "u1", "report.pdf", "report.pdf",
		"application/pdf", nil, models.AttachmentTypeDocument, int64(100),
		"abc123", "u1/conversations/c1/x", "minio", models.AttachmentStatusUploaded,
		models.AttachmentActivityActive, false, nil, nil, now, now, nil,
	)
	mock.ExpectQuery("SELECT (.+) FROM attachments").
		WithArgs("c1", "abc123", models.AttachmentStatusUploaded).
		WillReturnRows(rows)

	got, err := repo.FindByHash(context.Background(), "c1", "abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, "report.pdf", got.Filename)
}

func TestAttachmentRepositoryFindByHashMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttachmentRepository(db)
	mock.ExpectQuery("SELECT (.+) FROM attachments").
		WithArgs("c1", "missing", models.AttachmentStatusUploaded).
		WillReturnRows(attachmentRows())

	got, err := repo.FindByHash(context.Background(), "c1", "missing")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAttachmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttachmentRepository(db)
	now := time.Now()
	rows := attachmentRows().AddRow(
		int64(1), "a1", "c1", "u1", "a.txt", "a.txt",
		"text/plain", nil, models.AttachmentTypeDocument, int64(5),
		"h1", "p1", "minio", models.AttachmentStatusUploaded,
		models.AttachmentActivityActive, false, nil, nil, now, now, nil,
	)
	mock.ExpectQuery("SELECT (.+) FROM attachments").
		WithArgs("c1").
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), models.AttachmentFilter{ConversationID: "c1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestAttachmentRepositoryUpdateActivityBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttachmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE attachments SET activity").
		WithArgs(models.AttachmentActivityInactive, sqlmock.AnyArg(), "a1", "c1", models.AttachmentStatusUploaded).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE attachments SET activity").
		WithArgs(models.AttachmentActivityActive, sqlmock.AnyArg(), "a2", "c1", models.AttachmentStatusUploaded).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.UpdateActivityBatch(context.Background(), "c1", []models.AttachmentActivityChange{
		{AttachmentID: "a1", Activity: models.AttachmentActivityInactive},
		{AttachmentID: "a2", Activity: models.AttachmentActivityActive},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentRepositoryMarkStalePendingFailed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttachmentRepository(db)
	cutoff := time.Now().Add(-time.Hour)
	mock.ExpectQuery("UPDATE attachments").
		WithArgs(models.AttachmentStatusFailed, sqlmock.AnyArg(), models.AttachmentStatusPending, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a1").AddRow("a2"))

	ids, err := repo.MarkStalePendingFailed(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids)
}

func TestAttachmentRepositoryMarkScanned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttachmentRepository(db)
	mock.ExpectExec("UPDATE attachments SET virus_scanned").
		WithArgs(sqlmock.AnyArg(), "a1", models.AttachmentStatusUploaded).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkScanned(context.Background(), "a1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
