package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Year,Term,Applications,Admitted,Enrolled,Retention Rate (%),Student Satisfaction (%),Engineering Enrolled,Business Enrolled,Arts Enrolled,Science Enrolled\n"

const sample = header +
	"2023,Fall,500,300,150,85.0,80.0,40,30,30,50\n" +
	"2023,Spring,450,280,140,83.0,78.0,35,28,32,45\n"

func writeData(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	loader := NewLoader(LoaderConfig{Path: writeData(t, "u.csv", sample)}, nil)

	ds, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	assert.Equal(t, Record{
		Year: 2023, Term: "Fall",
		Applications: 500, Admitted: 300, Enrolled: 150,
		RetentionRate: 85.0, Satisfaction: 80.0,
		EngineeringEnrolled: 40, BusinessEnrolled: 30, ArtsEnrolled: 30, ScienceEnrolled: 50,
	}, ds.At(0))
	assert.Equal(t, "Spring", ds.At(1).Term)
	assert.Empty(t, ds.Issues)
	assert.Empty(t, ds.Duplicates)
}

func TestLoadIsMemoized(t *testing.T) {
	path := writeData(t, "u.csv", sample)
	loader := NewLoader(LoaderConfig{Path: path}, nil)

	first, err := loader.Load()
	require.NoError(t, err)

	// 文件变化不影响已缓存的结果
	require.NoError(t, os.Remove(path))
	second, err := loader.Load()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, first.Records(), second.Records())
}

func TestLoadColumnOrderIrrelevant(t *testing.T) {
	content := "Term,Year,Science Enrolled,Arts Enrolled,Business Enrolled,Engineering Enrolled,Student Satisfaction (%),Retention Rate (%),Enrolled,Admitted,Applications,Notes\n" +
		"Fall,2023,50,30,30,40,80.0,85.0,150,300,500,ok\n"
	ds, err := NewLoader(LoaderConfig{Path: writeData(t, "u.csv", content)}, nil).Load()
	require.NoError(t, err)

	r := ds.At(0)
	assert.Equal(t, 2023, r.Year)
	assert.Equal(t, 500, r.Applications)
	assert.Equal(t, 50, r.ScienceEnrolled)
	assert.Equal(t, 85.0, r.RetentionRate)
}

func TestLoadCustomColumns(t *testing.T) {
	content := "Academic Year,Term,Applications,Admitted,Enrolled,Retention Rate (%),Student Satisfaction (%),Engineering Enrolled,Business Enrolled,Arts Enrolled,Science Enrolled\n" +
		"2022,Fall,1,1,1,50,50,0,0,0,1\n"
	loader := NewLoader(LoaderConfig{
		Path:    writeData(t, "u.csv", content),
		Columns: map[string]string{"year": "Academic Year"},
	}, nil)
	ds, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 2022, ds.At(0).Year)
}

func TestLoadResourceErrors(t *testing.T) {
	cases := map[string]string{
		"missing column":   "Year,Term\n2023,Fall\n",
		"non-numeric":      header + "2023,Fall,many,300,150,85.0,80.0,40,30,30,50\n",
		"float year":       header + "2023.5,Fall,500,300,150,85.0,80.0,40,30,30,50\n",
		"nan percentage":   header + "2023,Fall,500,300,150,NaN,80.0,40,30,30,50\n",
		"empty term":       header + "2023,,500,300,150,85.0,80.0,40,30,30,50\n",
		"ragged row":       header + "2023,Fall,500\n",
		"empty file":       "",
		"duplicate header": "Year,Year\n1,2\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader(LoaderConfig{Path: writeData(t, "u.csv", content)}, nil).Load()
			require.Error(t, err)
			assert.True(t, IsResourceError(err), "%v", err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		loader := NewLoader(LoaderConfig{Path: filepath.Join(t.TempDir(), "none.csv")}, nil)
		_, err := loader.Load()

		var re *ResourceError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "open", re.Op)
		assert.True(t, errors.Is(err, os.ErrNotExist))

		// 错误同样被缓存
		_, again := loader.Load()
		assert.Same(t, err, again)
	})
}

func TestLoadValidationIssues(t *testing.T) {
	content := header +
		"2023,Fall,-5,300,150,85.0,80.0,40,30,30,50\n" +
		"2023,Spring,450,280,140,101.5,78.0,35,28,32,45\n" +
		"2023,Fall,500,300,150,85.0,80.0,40,30,30,50\n"

	t.Run("lenient", func(t *testing.T) {
		ds, err := NewLoader(LoaderConfig{Path: writeData(t, "u.csv", content)}, nil).Load()
		require.NoError(t, err)
		require.Len(t, ds.Issues, 2)
		assert.Equal(t, 2, ds.Issues[0].Row)
		assert.Equal(t, "Applications", ds.Issues[0].Column)
		assert.Equal(t, "Retention Rate (%)", ds.Issues[1].Column)
		assert.Equal(t, []Key{{Year: 2023, Term: "Fall"}}, ds.Duplicates)
	})

	t.Run("strict", func(t *testing.T) {
		_, err := NewLoader(LoaderConfig{Path: writeData(t, "u.csv", content), Strict: true}, nil).Load()
		require.Error(t, err)

		var re *ResourceError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "validate", re.Op)

		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
	})
}

func TestLoadStrictRejectsDuplicateOnly(t *testing.T) {
	content := sample + "2023,Fall,510,310,155,86.0,81.0,41,31,31,52\n"
	path := writeData(t, "u.csv", content)

	ds, err := NewLoader(LoaderConfig{Path: path}, nil).Load()
	require.NoError(t, err)
	assert.Empty(t, ds.Issues)
	assert.Equal(t, []Key{{Year: 2023, Term: "Fall"}}, ds.Duplicates)

	_, err = NewLoader(LoaderConfig{Path: path, Strict: true}, nil).Load()
	require.Error(t, err)

	var re *ResourceError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "validate", re.Op)
	assert.Contains(t, err.Error(), "重复的年份/学期: 2023 Fall")

	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
}

func TestHolderReload(t *testing.T) {
	path := writeData(t, "u.csv", sample)
	ds, err := NewLoader(LoaderConfig{Path: path}, nil).Load()
	require.NoError(t, err)
	holder := NewHolder(ds)

	require.NoError(t, os.WriteFile(path, []byte(header+"2024,Fall,1,1,1,1,1,1,1,1,1\n"), 0644))
	next, err := holder.ReloadFrom(NewLoader(LoaderConfig{Path: path}, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, next.Len())
	assert.Same(t, next, holder.Get())

	// 加载失败保留旧数据集
	require.NoError(t, os.WriteFile(path, []byte("broken"), 0644))
	kept, err := holder.ReloadFrom(NewLoader(LoaderConfig{Path: path}, nil))
	assert.Error(t, err)
	assert.Same(t, next, kept)
	assert.Same(t, next, holder.Get())
}

func TestRecordsReturnsCopy(t *testing.T) {
	ds := New("mem", []Record{{Year: 2023, Term: "Fall"}})
	rs := ds.Records()
	rs[0].Term = "Winter"
	assert.Equal(t, "Fall", ds.At(0).Term)
}

func TestNotFoundError(t *testing.T) {
	var err error = &NotFoundError{Year: 2099, Term: "Winter"}
	assert.True(t, IsNotFound(err))
	assert.False(t, IsResourceError(err))
	assert.Contains(t, err.Error(), "no data for this selection")
}
