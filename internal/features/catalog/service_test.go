package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edustack.in/resource-bot/internal/common"
)

func newTestService() *Service {
	return NewService(NewMemoryRepository())
}

func TestAddSubjectRejectsDuplicate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AddSubject(ctx, "CSE211")
	require.NoError(t, err)

	_, err = svc.AddSubject(ctx, "CSE211")
	assert.ErrorIs(t, err, common.ErrDuplicateSubject)

	count, err := svc.CountSubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddResourceToUnknownSubject(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AddResource(ctx, "CSE211", "Lecture notes", "https://example.com")
	assert.ErrorIs(t, err, common.ErrSubjectNotFound)

	count, err := svc.CountResources(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRemoveResourceIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AddSubject(ctx, "CSE211")
	require.NoError(t, err)
	res, err := svc.AddResource(ctx, "CSE211", "Lecture notes", "https://example.com")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveResource(ctx, res.ID))
	// Повторное удаление — сообщение, не отказ.
	assert.ErrorIs(t, svc.RemoveResource(ctx, res.ID), common.ErrResourceNotFound)
}

func TestDeleteSubjectCascades(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AddSubject(ctx, "CSE211")
	require.NoError(t, err)
	_, err = svc.AddSubject(ctx, "MAT102")
	require.NoError(t, err)
	_, err = svc.AddResource(ctx, "CSE211", "Lecture notes", "https://example.com/1")
	require.NoError(t, err)
	_, err = svc.AddResource(ctx, "CSE211", "Past papers", "https://example.com/2")
	require.NoError(t, err)
	keep, err := svc.AddResource(ctx, "MAT102", "Problem set", "https://example.com/3")
	require.NoError(t, err)

	removed, err := svc.DeleteSubject(ctx, "CSE211")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// Чужой предмет не задет.
	_, resources, err := svc.Find(ctx, "MAT102")
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, keep.ID, resources[0].ID)

	// Повторное удаление того же предмета — «не найдено».
	_, err = svc.DeleteSubject(ctx, "CSE211")
	assert.ErrorIs(t, err, common.ErrSubjectNotFound)
}

func TestMostAccessedTieBreaksByLowestID(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	top, err := svc.MostAccessed(ctx)
	require.NoError(t, err)
	assert.Nil(t, top) // пустой каталог

	_, err = svc.AddSubject(ctx, "CSE211")
	require.NoError(t, err)
	first, err := svc.AddResource(ctx, "CSE211", "Lecture notes", "https://example.com/1")
	require.NoError(t, err)
	second, err := svc.AddResource(ctx, "CSE211", "Past papers", "https://example.com/2")
	require.NoError(t, err)

	// По два обращения на каждый: ничья, побеждает меньший id.
	for i := 0; i < 2; i++ {
		require.NoError(t, svc.RecordAccess(ctx, first.ID))
		require.NoError(t, svc.RecordAccess(ctx, second.ID))
	}

	top, err = svc.MostAccessed(ctx)
	require.NoError(t, err)
	require.NotNil(t, top)
	assert.Equal(t, first.ID, top.ID)

	// Третье обращение ко второму выводит его вперёд.
	require.NoError(t, svc.RecordAccess(ctx, second.ID))
	top, err = svc.MostAccessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, top.ID)
}

func TestImportReportsPerRecord(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	records := []ImportRecord{
		{Subject: "CSE211", Title: "Lecture notes", Link: "https://example.com/1"},
		{Subject: "", Title: "No subject", Link: "https://example.com/2"},
		{Subject: "MAT102", Title: "ab", Link: "https://example.com/3"},
		{Subject: "MAT102", Title: "Problem set", Link: "ftp://example.com/4"},
		{Subject: "MAT102", Title: "Problem set", Link: "https://example.com/5"},
	}

	results := svc.Import(ctx, records)
	require.Len(t, results, 5)

	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, common.ErrValidation)
	assert.ErrorIs(t, results[2].Err, common.ErrValidation)
	assert.ErrorIs(t, results[3].Err, common.ErrValidation)
	assert.NoError(t, results[4].Err)

	// Отсутствующие предметы создаются на лету.
	count, err := svc.CountSubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = svc.CountResources(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestEditResourceLink(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AddSubject(ctx, "CSE211")
	require.NoError(t, err)
	res, err := svc.AddResource(ctx, "CSE211", "Lecture notes", "https://example.com/old")
	require.NoError(t, err)

	require.NoError(t, svc.EditResource(ctx, res.ID, "https://example.com/new"))

	_, resources, err := svc.Find(ctx, "CSE211")
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "https://example.com/new", resources[0].Link)

	assert.ErrorIs(t, svc.EditResource(ctx, 999, "https://example.com"), common.ErrResourceNotFound)
}
