package processor

import (
	"math/rand"
	"testing"

	"UniversityDashboard/src/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenario() *dataset.Dataset {
	return dataset.New("scenario", []dataset.Record{
		{Year: 2023, Term: "Fall", Applications: 500, Admitted: 300, Enrolled: 150, RetentionRate: 85.0, Satisfaction: 80.0,
			EngineeringEnrolled: 40, BusinessEnrolled: 30, ArtsEnrolled: 30, ScienceEnrolled: 50},
		{Year: 2023, Term: "Spring", Applications: 450, Admitted: 280, Enrolled: 140, RetentionRate: 83.0, Satisfaction: 78.0,
			EngineeringEnrolled: 35, BusinessEnrolled: 28, ArtsEnrolled: 32, ScienceEnrolled: 45},
	})
}

// randomDataset 随机生成数据，年份乱序、学期只取 Spring/Fall，允许主键重复
func randomDataset(seed int64, n int) *dataset.Dataset {
	rng := rand.New(rand.NewSource(seed))
	terms := []string{"Spring", "Fall"}
	records := make([]dataset.Record, n)
	for i := range records {
		records[i] = dataset.Record{
			Year:                2015 + rng.Intn(10),
			Term:                terms[rng.Intn(2)],
			Applications:        rng.Intn(5000),
			Admitted:            rng.Intn(3000),
			Enrolled:            rng.Intn(1500),
			RetentionRate:       rng.Float64() * 100,
			Satisfaction:        rng.Float64() * 100,
			EngineeringEnrolled: rng.Intn(500),
			BusinessEnrolled:    rng.Intn(500),
			ArtsEnrolled:        rng.Intn(500),
			ScienceEnrolled:     rng.Intn(500),
		}
	}
	return dataset.New("random", records)
}

func TestScenarioTrendByYearTerm(t *testing.T) {
	rows := TrendByYearTerm(scenario())
	assert.Equal(t, []TrendRow{
		{Year: 2023, Term: "Fall", Applications: 500, Admitted: 300, Enrolled: 150, RetentionRate: 85.0, Satisfaction: 80.0},
		{Year: 2023, Term: "Spring", Applications: 450, Admitted: 280, Enrolled: 140, RetentionRate: 83.0, Satisfaction: 78.0},
	}, rows)
}

func TestScenarioDepartmentTrendByYear(t *testing.T) {
	rows := DepartmentTrendByYear(scenario())
	assert.Equal(t, []DepartmentTrendRow{
		{Year: 2023, Engineering: 75, Business: 58, Arts: 62, Science: 95},
	}, rows)
}

func TestSelectExact(t *testing.T) {
	ds := scenario()

	rec, err := SelectExact(ds, 2023, "Spring")
	require.NoError(t, err)
	assert.Equal(t, 2023, rec.Year)
	assert.Equal(t, "Spring", rec.Term)
	assert.Equal(t, 450, rec.Applications)

	_, err = SelectExact(ds, 2099, "Winter")
	var nf *dataset.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 2099, nf.Year)
	assert.Equal(t, "Winter", nf.Term)

	// 学期区分大小写
	_, err = SelectExact(ds, 2023, "fall")
	assert.True(t, dataset.IsNotFound(err))

	_, err = SelectExact(dataset.New("empty", nil), 2023, "Fall")
	assert.True(t, dataset.IsNotFound(err))
}

func TestSelectExactFirstOfDuplicates(t *testing.T) {
	ds := dataset.New("dup", []dataset.Record{
		{Year: 2023, Term: "Fall", Applications: 1},
		{Year: 2023, Term: "Fall", Applications: 2},
	})
	rec, err := SelectExact(ds, 2023, "Fall")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Applications)
}

func TestSelectExactReturnsMatchingKey(t *testing.T) {
	ds := randomDataset(7, 60)
	for i := 0; i < ds.Len(); i++ {
		want := ds.At(i)
		rec, err := SelectExact(ds, want.Year, want.Term)
		require.NoError(t, err)
		assert.Equal(t, want.Year, rec.Year)
		assert.Equal(t, want.Term, rec.Term)
	}
}

func TestTrendByYearTermMergesDuplicates(t *testing.T) {
	ds := dataset.New("dup", []dataset.Record{
		{Year: 2024, Term: "Spring", Applications: 10, Admitted: 5, Enrolled: 2, RetentionRate: 80, Satisfaction: 70},
		{Year: 2023, Term: "Fall", Applications: 1, RetentionRate: 50, Satisfaction: 50},
		{Year: 2024, Term: "Spring", Applications: 20, Admitted: 15, Enrolled: 8, RetentionRate: 90, Satisfaction: 90},
		{Year: 2024, Term: "Fall", Applications: 3, RetentionRate: 60, Satisfaction: 60},
	})

	rows := TrendByYearTerm(ds)
	require.Len(t, rows, 3)

	// 年份升序；同年内学期按首次出现顺序(Spring 先于 Fall 出现)
	assert.Equal(t, dataset.Key{Year: 2023, Term: "Fall"}, dataset.Key{Year: rows[0].Year, Term: rows[0].Term})
	assert.Equal(t, dataset.Key{Year: 2024, Term: "Spring"}, dataset.Key{Year: rows[1].Year, Term: rows[1].Term})
	assert.Equal(t, dataset.Key{Year: 2024, Term: "Fall"}, dataset.Key{Year: rows[2].Year, Term: rows[2].Term})

	assert.Equal(t, 30, rows[1].Applications)
	assert.Equal(t, 20, rows[1].Admitted)
	assert.Equal(t, 10, rows[1].Enrolled)
	assert.InDelta(t, 85.0, rows[1].RetentionRate, 1e-9)
	assert.InDelta(t, 80.0, rows[1].Satisfaction, 1e-9)
}

func TestAggregationConservesTotals(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		ds := randomDataset(seed, 50)

		var apps, eng, bus, arts, sci int
		for _, r := range ds.Records() {
			apps += r.Applications
			eng += r.EngineeringEnrolled
			bus += r.BusinessEnrolled
			arts += r.ArtsEnrolled
			sci += r.ScienceEnrolled
		}

		var trendApps int
		trends := TrendByYearTerm(ds)
		for i, row := range trends {
			trendApps += row.Applications
			if i > 0 {
				assert.LessOrEqual(t, trends[i-1].Year, row.Year)
			}
		}
		assert.Equal(t, apps, trendApps, "seed %d", seed)

		var gotEng, gotBus, gotArts, gotSci int
		depts := DepartmentTrendByYear(ds)
		for i, row := range depts {
			gotEng += row.Engineering
			gotBus += row.Business
			gotArts += row.Arts
			gotSci += row.Science
			if i > 0 {
				assert.Less(t, depts[i-1].Year, row.Year)
			}
		}
		assert.Equal(t, []int{eng, bus, arts, sci}, []int{gotEng, gotBus, gotArts, gotSci}, "seed %d", seed)
	}
}

func TestSubsetByTermPartitions(t *testing.T) {
	ds := randomDataset(42, 40)
	spring := SubsetByTerm(ds, "Spring")
	fall := SubsetByTerm(ds, "Fall")

	assert.Equal(t, ds.Len(), len(spring)+len(fall))
	for _, r := range spring {
		assert.Equal(t, "Spring", r.Term)
	}
	for _, r := range fall {
		assert.Equal(t, "Fall", r.Term)
	}

	// 保持原有相对顺序
	var want []dataset.Record
	for _, r := range ds.Records() {
		if r.Term == "Spring" {
			want = append(want, r)
		}
	}
	assert.Equal(t, want, spring)

	assert.Empty(t, SubsetByTerm(ds, "Winter"))
}

func TestAggregationDoesNotMutate(t *testing.T) {
	ds := randomDataset(3, 30)
	before := ds.Records()

	TrendByYearTerm(ds)
	DepartmentTrendByYear(ds)
	SubsetByTerm(ds, "Fall")
	_, _ = SelectExact(ds, 1900, "Fall")

	assert.Equal(t, before, ds.Records())
}

func TestDepartmentBreakdown(t *testing.T) {
	rec, err := SelectExact(scenario(), 2023, "Fall")
	require.NoError(t, err)
	assert.Equal(t, []DepartmentCount{
		{Department: "Engineering", Enrolled: 40},
		{Department: "Business", Enrolled: 30},
		{Department: "Arts", Enrolled: 30},
		{Department: "Science", Enrolled: 50},
	}, DepartmentBreakdown(rec))
}

func TestOptions(t *testing.T) {
	ds := dataset.New("opts", []dataset.Record{
		{Year: 2024, Term: "Spring"},
		{Year: 2023, Term: "Fall"},
		{Year: 2024, Term: "Fall"},
	})
	assert.Equal(t, FilterOptions{Years: []int{2024, 2023}, Terms: []string{"Spring", "Fall"}}, Options(ds))
	assert.Equal(t, FilterOptions{Years: []int{}, Terms: []string{}}, Options(dataset.New("empty", nil)))
}

func TestCompareTerms(t *testing.T) {
	cmp := CompareTerms(scenario(), "Spring", "Fall")
	assert.Equal(t, [2]string{"Spring", "Fall"}, cmp.Terms)
	require.Len(t, cmp.Subsets["Spring"], 1)
	require.Len(t, cmp.Subsets["Fall"], 1)
	assert.Equal(t, 450, cmp.Subsets["Spring"][0].Applications)
}
