package sheet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"digital.vasic.keywords/pkg/testcase"
)

func TestWriteXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "keywords.xlsx")
	steps := []testcase.Step{
		{Number: "1", Keyword: "navigate", Data: "https://www.demoblaze.com"},
		{
			Number: "2", Keyword: "click", Locator: "id=signin2",
			Expected: "Sign up modal opens",
		},
	}

	require.NoError(t, WriteXLSX(path, "SignupLogin", steps))

	loaded, err := XLSX{}.Load(path, "SignupLogin")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "navigate", loaded[0].Keyword)
	assert.Equal(t, "https://www.demoblaze.com", loaded[0].Data)
	assert.Equal(t, "id=signin2", loaded[1].Locator)
	assert.Equal(t, "Sign up modal opens", loaded[1].Expected)

	first, err := XLSX{}.Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, loaded, first)
}

func TestXLSX_MissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.xlsx")
	require.NoError(t, WriteXLSX(path, "", nil))

	_, err := XLSX{}.Load(path, "Nope")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestXLSX_SplitLocatorColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "split.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{
		"Test_Step_ID", "Action", "Locator_Type",
		"Locator_Value", "Value",
	}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{
		"S1", "input_text", "name", "q", "shoes",
	}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	steps, err := XLSX{}.Load(path, "Sheet1")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "S1", steps[0].Number)
	assert.Equal(t, "name=q", steps[0].Locator)
	assert.Equal(t, "shoes", steps[0].Data)
}

func TestXLSX_NotAWorkbook(t *testing.T) {
	path := writeFile(t, "bad.xlsx", "not a zip")
	_, err := XLSX{}.Load(path, "")
	assert.Error(t, err)
}
