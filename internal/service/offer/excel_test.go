package offer

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/zaimgo/marketing-api/internal/model"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
)

type fakeOfferRepo struct {
	byName map[string]*model.Offer
}

func newFakeOfferRepo() *fakeOfferRepo {
	return &fakeOfferRepo{byName: make(map[string]*model.Offer)}
}

func (f *fakeOfferRepo) Create(_ context.Context, offer *model.Offer) error {
	offer.ID = uuid.New()
	f.byName[offer.Name] = offer
	return nil
}

func (f *fakeOfferRepo) Get(_ context.Context, id uuid.UUID) (*model.Offer, error) {
	for _, o := range f.byName {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, apperrors.NotFound("offer", nil)
}

func (f *fakeOfferRepo) Update(_ context.Context, offer *model.Offer) error {
	f.byName[offer.Name] = offer
	return nil
}

func (f *fakeOfferRepo) Delete(_ context.Context, id uuid.UUID) error {
	for name, o := range f.byName {
		if o.ID == id {
			delete(f.byName, name)
			return nil
		}
	}
	return apperrors.NotFound("offer", nil)
}

func (f *fakeOfferRepo) List(context.Context) ([]*model.Offer, error) {
	var out []*model.Offer
	for _, o := range f.byName {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOfferRepo) UpsertByName(_ context.Context, offer *model.Offer) (bool, error) {
	if existing, ok := f.byName[offer.Name]; ok {
		offer.ID = existing.ID
		f.byName[offer.Name] = offer
		return false, nil
	}
	offer.ID = uuid.New()
	f.byName[offer.Name] = offer
	return true, nil
}

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet("Offers")
	require.NoError(t, err)
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	header := []interface{}{
		"Name", "Logo URL", "Link",
		"Sum Min", "Sum Max", "Term Min", "Term Max",
		"Rate %/day", "Approval %", "Payout Hours",
		"Requirements", "Get Methods", "Repay Methods",
	}
	all := append([][]interface{}{header}, rows...)
	for i, row := range all {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Offers", cell, value))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestImportWorkbook(t *testing.T) {
	repo := newFakeOfferRepo()
	svc := NewService(repo)

	wb := buildWorkbook(t, [][]interface{}{
		{"Fast Money", "https://cdn.example.com/fm.png", "https://fast.example.com", 1000, 30000, 7, 30, "0,8", 95, "0,25", "Passport", "Card", "Card"},
		{"Easy Cash", "", "https://easy.example.com", 500, 15000, 5, 21, 1.2, 90, 1, "Passport; SNILS", "Card; Cash", "Card"},
	})

	summary, err := svc.ImportWorkbook(context.Background(), wb)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 0, summary.Skipped)
	assert.Empty(t, summary.Errors)

	fast := repo.byName["Fast Money"]
	require.NotNil(t, fast)
	assert.Equal(t, 1000, fast.SumMin)
	// Comma decimals are accepted.
	assert.InDelta(t, 0.8, fast.Rate, 0.001)
	assert.InDelta(t, 0.25, fast.PayoutSpeedHours, 0.001)
}

func TestImportWorkbookUpsertsByName(t *testing.T) {
	repo := newFakeOfferRepo()
	svc := NewService(repo)

	first := buildWorkbook(t, [][]interface{}{
		{"Fast Money", "", "https://fast.example.com", 1000, 30000, 7, 30, 0.8, 95, 1, "", "", ""},
	})
	_, err := svc.ImportWorkbook(context.Background(), first)
	require.NoError(t, err)

	second := buildWorkbook(t, [][]interface{}{
		{"Fast Money", "", "https://fast.example.com", 2000, 50000, 7, 30, 0.7, 97, 1, "", "", ""},
	})
	summary, err := svc.ImportWorkbook(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 2000, repo.byName["Fast Money"].SumMin)
	assert.Len(t, repo.byName, 1)
}

func TestImportWorkbookCollectsRowErrors(t *testing.T) {
	repo := newFakeOfferRepo()
	svc := NewService(repo)

	wb := buildWorkbook(t, [][]interface{}{
		{"Good Offer", "", "https://good.example.com", 1000, 30000, 7, 30, 0.8, 95, 1, "", "", ""},
		{"", "", "https://nameless.example.com", 1000, 30000, 7, 30, 0.8, 95, 1, "", "", ""},
		{"Bad Numbers", "", "https://bad.example.com", "lots", 30000, 7, 30, 0.8, 95, 1, "", "", ""},
		{"No Link", "", "", 1000, 30000, 7, 30, 0.8, 95, 1, "", "", ""},
		{"Inverted Range", "", "https://inv.example.com", 30000, 1000, 7, 30, 0.8, 95, 1, "", "", ""},
	})

	summary, err := svc.ImportWorkbook(context.Background(), wb)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 4, summary.Skipped)
	assert.Len(t, summary.Errors, 4)
	assert.Len(t, repo.byName, 1)
}

func TestImportWorkbookRejectsEmptyFile(t *testing.T) {
	svc := NewService(newFakeOfferRepo())

	_, err := svc.ImportWorkbook(context.Background(), bytes.NewReader([]byte("not a workbook")))
	assert.Error(t, err)
}

func TestTemplateRoundTrips(t *testing.T) {
	svc := NewService(newFakeOfferRepo())

	data, err := svc.Template()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Offers")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, "Name", rows[0][0])
	assert.Equal(t, "Repay Methods", rows[0][12])

	// The example row itself imports cleanly.
	repo := newFakeOfferRepo()
	summary, err := NewService(repo).ImportWorkbook(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
}

func TestCreateOfferValidation(t *testing.T) {
	svc := NewService(newFakeOfferRepo())

	err := svc.Create(context.Background(), &model.Offer{Link: "https://x.example.com"})
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	err = svc.Create(context.Background(), &model.Offer{Name: "X"})
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	err = svc.Create(context.Background(), &model.Offer{
		Name: "X", Link: "https://x.example.com", TermMin: 30, TermMax: 7,
	})
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}
