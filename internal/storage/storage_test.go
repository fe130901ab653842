package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

func testResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:         "7d1f0c8e-2b61-4f0e-9a44-5c3b8c2d9e10",
		SourceFile: "finance.xlsx",
		CreatedAt:  time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		ControlObjectives: []models.ControlObjective{
			{Department: "Finance", Objective: "Payments are approved", WhatCanGoWrong: "Duplicate payments", RiskLevel: "High"},
		},
		Departments: []string{"Finance"},
		DepartmentRisks: models.DepartmentRisks{
			{Name: "Finance", Profile: models.DepartmentRiskProfile{OverallRiskLevel: "High"}},
		},
	}
}

func TestNewStorage(t *testing.T) {
	storage := NewStorage("/tmp/test")
	assert.NotNil(t, storage)
	assert.Equal(t, "/tmp/test", storage.BaseDir())
}

func TestSaveAndLoadAnalysis(t *testing.T) {
	storage := NewStorageWithLogger(t.TempDir(), logger.NewMockLogger())
	result := testResult()

	dir, err := storage.SaveAnalysis(result)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "analysis.json"))

	loaded, err := storage.LoadAnalysis(result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.SourceFile, loaded.SourceFile)
	assert.True(t, result.CreatedAt.Equal(loaded.CreatedAt))
	assert.Equal(t, []string{"Finance"}, loaded.DepartmentRisks.Names())

	_, err = storage.LoadAnalysis("missing")
	assert.ErrorIs(t, err, ErrAnalysisNotFound)

	require.NoError(t, storage.DeleteAnalysis(result.ID))
	_, err = storage.LoadAnalysis(result.ID)
	assert.ErrorIs(t, err, ErrAnalysisNotFound)
}

func TestAnalysisDirRejectsTraversal(t *testing.T) {
	storage := NewStorage(t.TempDir())

	_, err := storage.AnalysisDir("")
	assert.Error(t, err)

	_, err = storage.AnalysisDir("../escape")
	assert.Error(t, err)

	_, err = storage.SaveAnalysis(&models.AnalysisResult{ID: "../../etc"})
	assert.Error(t, err)
}

func TestWriteExports(t *testing.T) {
	storage := NewStorageWithLogger(t.TempDir(), logger.NewMockLogger())
	result := testResult()

	paths, err := storage.WriteExports(result, []string{"xlsx", "csv"})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "rcm_analysis_20250314_092653.xlsx", filepath.Base(paths[0]))
	assert.Equal(t, "rcm_analysis_20250314_092653.csv", filepath.Base(paths[1]))
	for _, p := range paths {
		assert.FileExists(t, p)
	}

	_, err = storage.WriteExports(result, []string{"pdf"})
	assert.Error(t, err)
}

func TestWriteExportsWithoutTimestamp(t *testing.T) {
	storage := NewStorageWithLogger(t.TempDir(), logger.NewMockLogger())
	storage.now = func() time.Time { return time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC) }

	result := testResult()
	result.CreatedAt = time.Time{}

	paths, err := storage.WriteExports(result, []string{"csv"})
	require.NoError(t, err)
	assert.Equal(t, "rcm_analysis_20241231_235900.csv", filepath.Base(paths[0]))
}

type fakeS3 struct {
	err     error
	objects map[string]string
	types   map[string]string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = string(body)
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestS3PublisherPublish(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "rcm_analysis_20250314_092653.csv")
	xlsxPath := filepath.Join(dir, "rcm_analysis_20250314_092653.xlsx")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n"), 0600))
	require.NoError(t, os.WriteFile(xlsxPath, []byte("PK"), 0600))

	fake := &fakeS3{objects: map[string]string{}, types: map[string]string{}}
	log := logger.NewMockLogger()
	publisher := NewS3PublisherWithClient(fake, "rcm-exports", "/reports/", log)

	uris, err := publisher.Publish(context.Background(), "abc", []string{csvPath, xlsxPath})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"s3://rcm-exports/reports/abc/rcm_analysis_20250314_092653.csv",
		"s3://rcm-exports/reports/abc/rcm_analysis_20250314_092653.xlsx",
	}, uris)

	assert.Equal(t, "a,b\n", fake.objects["rcm-exports/reports/abc/rcm_analysis_20250314_092653.csv"])
	assert.Equal(t, "text/csv; charset=utf-8", fake.types["rcm-exports/reports/abc/rcm_analysis_20250314_092653.csv"])
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		fake.types["rcm-exports/reports/abc/rcm_analysis_20250314_092653.xlsx"])
	assert.Equal(t, 2, log.Count("INFO"))
}

func TestS3PublisherErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	failing := NewS3PublisherWithClient(&fakeS3{err: errors.New("access denied")}, "b", "", logger.NewMockLogger())
	_, err := failing.Publish(context.Background(), "id", []string{file})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploading report.csv to s3://b/id/report.csv")

	ok := NewS3PublisherWithClient(&fakeS3{objects: map[string]string{}, types: map[string]string{}}, "b", "", logger.NewMockLogger())
	_, err = ok.Publish(context.Background(), "id", []string{filepath.Join(dir, "missing.csv")})
	assert.ErrorContains(t, err, "opening")

	_, err = NewS3Publisher(context.Background(), S3Options{}, logger.NewMockLogger())
	assert.ErrorContains(t, err, "bucket is required")
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "text/markdown; charset=utf-8", contentTypeFor("x/report.MD"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("x/report.bin"))
}
