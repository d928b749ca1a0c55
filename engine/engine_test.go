package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Test Data ─────────────────────────────────────────────────────────────────

type menuItem struct {
	Restaurant string
	Item       string
	Calories   Number
	TotalFat   Number
	Protein    Number
}

var menuAdapter = NewDomainAdapter[menuItem]().
	Dimension("restaurant", func(m menuItem) string { return m.Restaurant }).
	Dimension("item", func(m menuItem) string { return m.Item }).
	Measure("calories", KindInteger, func(m menuItem) Number { return m.Calories }).
	Measure("total_fat", KindInteger, func(m menuItem) Number { return m.TotalFat }).
	Measure("protein", KindInteger, func(m menuItem) Number { return m.Protein })

func menu() Dataset {
	return menuAdapter.Bind([]menuItem{
		{"Mcdonalds", "Big Mac", Some(540), Some(28), Some(25)},
		{"Mcdonalds", "Fries", Some(320), Some(15), None()},
		{"Subway", "Veggie Delite", Some(230), Some(3), Some(9)},
		{"Subway", "Meatball Marinara", Some(600), Some(24), Some(29)},
		{"Taco Bell", "Crunchy Taco", Some(170), None(), Some(8)},
		{"Mcdonalds", "McFlurry", None(), Some(17), Some(13)},
	})
}

func simpleDataset(rows ...map[string]any) Dataset {
	schema := Schema{{Name: "cat", Kind: KindString}, {Name: "cal", Kind: KindFloat}}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		r := NewRecord()
		r.Dimensions["cat"] = row["cat"].(string)
		switch v := row["cal"].(type) {
		case float64:
			r.Measures["cal"] = Some(v)
		case int:
			r.Measures["cal"] = Some(float64(v))
		default:
			r.Measures["cal"] = None()
		}
		records = append(records, r)
	}
	return NewDataset(schema, records)
}

func keys(rows []SummaryRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Key.String()
	}
	return out
}

// ============================================================================
// FILTER
// ============================================================================

func TestFilterIsOrderedSubsequence(t *testing.T) {
	ds := menu()
	pred := Where("calories", OpGt, 300)

	got := Filter(ds, pred)

	require.Equal(t, 3, got.Len())
	assert.Equal(t, "Big Mac", got.Record(0).Dimensions["item"])
	assert.Equal(t, "Fries", got.Record(1).Dimensions["item"])
	assert.Equal(t, "Meatball Marinara", got.Record(2).Dimensions["item"])
	for _, r := range got.Records() {
		assert.True(t, pred(r))
	}
	assert.Equal(t, 6, ds.Len(), "input must be untouched")
}

func TestFilterComposesLikeAnd(t *testing.T) {
	ds := menu()
	p1 := Where("calories", OpGte, 200)
	p2 := func(r Record) bool { return r.Dimensions["restaurant"] != "Subway" }

	twice := Filter(Filter(ds, p1), p2)
	once := Filter(ds, And(p1, p2))

	assert.Equal(t, once.Records(), twice.Records())
}

func TestFilterEmptyResultIsValid(t *testing.T) {
	got := Filter(menu(), Where("calories", OpGt, 10_000))
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, menu().Schema(), got.Schema())
}

func TestMissingNeverMatchesComparison(t *testing.T) {
	ds := menu()
	all := Filter(ds, Or(Where("calories", OpLt, 10_000), Where("calories", OpGte, 10_000)))
	assert.Equal(t, 5, all.Len(), "McFlurry has no calories and matches neither side")
}

func TestConditionCompile(t *testing.T) {
	schema := menu().Schema()
	tests := []struct {
		name    string
		cond    Condition
		want    int
		wantErr error
	}{
		{name: "numeric gt", cond: Condition{Column: "calories", Op: OpGt, Value: "500"}, want: 2},
		{name: "text eq is case-insensitive", cond: Condition{Column: "restaurant", Op: OpEq, Value: "subway"}, want: 2},
		{name: "in", cond: Condition{Column: "restaurant", Op: OpIn, Values: []string{"Taco Bell", "Subway"}}, want: 3},
		{name: "contains", cond: Condition{Column: "item", Op: OpContains, Value: "mac"}, want: 1},
		{name: "missing", cond: Condition{Column: "total_fat", Op: OpMissing}, want: 1},
		{name: "present", cond: Condition{Column: "protein", Op: OpPresent}, want: 5},
		{name: "unknown column", cond: Condition{Column: "sodium", Op: OpGt, Value: "1"}, wantErr: ErrUnknownColumn},
		{name: "bad number", cond: Condition{Column: "calories", Op: OpGt, Value: "lots"}, wantErr: ErrInvalidAnalysis},
		{name: "bad op", cond: Condition{Column: "calories", Op: "between"}, wantErr: ErrInvalidAnalysis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := tt.cond.Compile(schema)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, Filter(menu(), pred).Len())
		})
	}
}

func TestAllowListFilters(t *testing.T) {
	f := Filters{Dimensions: map[string][]string{"restaurant": {"MCDONALDS"}}}
	pred, err := f.Predicate(menu().Schema())
	require.NoError(t, err)
	assert.Equal(t, 3, Filter(menu(), pred).Len())

	_, err = Filters{Dimensions: map[string][]string{"chain": {"x"}}}.Predicate(menu().Schema())
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "chain", se.Column)

	assert.True(t, f.HasFilter("restaurant"))
	assert.False(t, f.HasFilter("item"))
	assert.False(t, f.IsEmpty())
	assert.True(t, Filters{}.IsEmpty())
}

func TestDatasetAccessors(t *testing.T) {
	ds := menu()
	assert.Equal(t, []string{"Mcdonalds", "Subway", "Taco Bell"}, UniqueValues(ds, "restaurant"))
	assert.Equal(t, []float64{540, 320, 230, 600, 170}, ds.Values("calories"))
	assert.Empty(t, ds.Values("nope"))
}

// ============================================================================
// GROUP + SUMMARISE
// ============================================================================

func TestGroupSummarizePartitionsAreExhaustiveAndDisjoint(t *testing.T) {
	ds := menu()
	rows, err := GroupSummarize(ds, GroupBy("restaurant"), Count())
	require.NoError(t, err)

	assert.Equal(t, []string{"Mcdonalds", "Subway", "Taco Bell"}, keys(rows), "first-seen order")
	total := 0
	for _, r := range rows {
		total += r.Count
	}
	assert.Equal(t, ds.Len(), total)
}

func TestMeanIgnoresMissing(t *testing.T) {
	ds := simpleDataset(
		map[string]any{"cat": "A", "cal": 10},
		map[string]any{"cat": "A", "cal": nil},
		map[string]any{"cat": "A", "cal": 30},
	)

	rows, err := GroupSummarize(ds, GroupBy("cat"), Mean("cal"), CountOf("cal"), Count())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	mean, ok := rows[0].Values["mean_cal"].Get()
	require.True(t, ok)
	assert.Equal(t, 20.0, mean)
	assert.Equal(t, 2.0, rows[0].Values["count_of_cal"].Or(-1))
	assert.Equal(t, 3, rows[0].Count, "partition size still counts every record")
}

func TestAllMissingIsNoValueNotZero(t *testing.T) {
	ds := simpleDataset(
		map[string]any{"cat": "A", "cal": nil},
		map[string]any{"cat": "B", "cal": 5},
	)

	rows, err := GroupSummarize(ds, GroupBy("cat"), Mean("cal"), Max("cal"), Sum("cal"), Median("cal"))
	require.NoError(t, err)

	for _, name := range []string{"mean_cal", "max_cal", "sum_cal", "median_cal"} {
		assert.False(t, rows[0].Values[name].Valid(), name)
		assert.True(t, rows[1].Values[name].Valid(), name)
	}
}

func TestMaxAndRatio(t *testing.T) {
	rows, err := GroupSummarize(menu(), GroupBy("restaurant"),
		Max("calories"),
		Mean("protein").As("protein"),
		Mean("calories").As("calories"),
		Ratio("protein_per_cal", "protein", "calories"),
	)
	require.NoError(t, err)

	mcd := rows[0]
	assert.Equal(t, 540.0, mcd.Values["max_calories"].Or(0))
	// protein mean (25+13)/2 = 19, calories mean (540+320)/2 = 430
	assert.InDelta(t, 19.0/430.0, mcd.Values["protein_per_cal"].Or(0), 1e-12)
}

func TestRatioWithZeroDenominatorIsMissing(t *testing.T) {
	ds := simpleDataset(map[string]any{"cat": "A", "cal": 0})
	rows, err := GroupSummarize(ds, GroupBy("cat"), Mean("cal").As("a"), Mean("cal").As("b"), Ratio("r", "a", "b"))
	require.NoError(t, err)
	assert.False(t, rows[0].Values["r"].Valid())
}

func TestGroupSummarizeFailsFast(t *testing.T) {
	tests := []struct {
		name     string
		grouping Grouping
		aggs     []Aggregation
		want     error
	}{
		{name: "unknown group column", grouping: GroupBy("chain"), aggs: []Aggregation{Count()}, want: ErrUnknownColumn},
		{name: "unknown aggregate column", grouping: GroupBy("restaurant"), aggs: []Aggregation{Mean("sodium")}, want: ErrUnknownColumn},
		{name: "mean of text column", grouping: GroupBy("restaurant"), aggs: []Aggregation{Mean("item")}, want: ErrColumnKind},
		{name: "ratio of unknown", grouping: GroupBy("restaurant"), aggs: []Aggregation{Ratio("r", "a", "b")}, want: ErrInvalidAnalysis},
		{name: "ratio of max", grouping: GroupBy("restaurant"), aggs: []Aggregation{Max("calories").As("a"), Mean("protein").As("b"), Ratio("r", "a", "b")}, want: ErrInvalidAnalysis},
		{name: "duplicate names", grouping: GroupBy("restaurant"), aggs: []Aggregation{Mean("calories"), Mean("calories")}, want: ErrInvalidAnalysis},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := GroupSummarize(menu(), tt.grouping, tt.aggs...)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, rows)
		})
	}
}

func TestGroupByMultipleColumnsAndFunc(t *testing.T) {
	rows, err := GroupSummarize(menu(), GroupBy("restaurant", "item"), Count())
	require.NoError(t, err)
	assert.Len(t, rows, 6)
	assert.Equal(t, "Mcdonalds / Big Mac", rows[0].Key.String())

	big := GroupByFunc("size", func(r Record) string {
		if r.Number("calories").Or(0) >= 500 {
			return "big"
		}
		return "small"
	})
	rows, err = GroupSummarize(menu(), big, Count())
	require.NoError(t, err)
	assert.Equal(t, []string{"big", "small"}, keys(rows))
}

func TestNoGroupingIsSingleTotal(t *testing.T) {
	rows, err := GroupSummarize(menu(), GroupBy(), Count(), Mean("calories"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Total", rows[0].Key.String())
	assert.Equal(t, 6, rows[0].Count)
}

// ============================================================================
// CLASSIFY
// ============================================================================

var calorieBands = Bands{
	Bands:     []Band{{Label: "Low", Below: 300}, {Label: "Medium", Below: 600}},
	Otherwise: "High",
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{299.999, "Low"},
		{300, "Medium"},
		{599.9, "Medium"},
		{600, "High"},
		{-5, "Low"},
		{5000, "High"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.v, calorieBands), "value %v", tt.v)
	}
	assert.Equal(t, DefaultMissingLabel, ClassifyNumber(None(), calorieBands))
}

func TestBandsValidate(t *testing.T) {
	assert.NoError(t, calorieBands.Validate())
	assert.ErrorIs(t, Bands{Otherwise: "x"}.Validate(), ErrInvalidBands)
	assert.ErrorIs(t, Bands{Bands: []Band{{"a", 5}}}.Validate(), ErrInvalidBands)
	assert.ErrorIs(t, Bands{Bands: []Band{{"a", 5}, {"b", 5}}, Otherwise: "c"}.Validate(), ErrInvalidBands)
}

func TestWithClassificationDoesNotMutateInput(t *testing.T) {
	ds := menu()
	out, err := WithClassification(ds, "calories", "calorie_band", calorieBands)
	require.NoError(t, err)

	assert.True(t, out.Schema().Has("calorie_band"))
	assert.False(t, ds.Schema().Has("calorie_band"))
	_, leaked := ds.Record(0).Dimensions["calorie_band"]
	assert.False(t, leaked)
	assert.Equal(t, "Medium", out.Record(0).Dimensions["calorie_band"])
	assert.Equal(t, DefaultMissingLabel, out.Record(5).Dimensions["calorie_band"])
}

// ============================================================================
// RANK + SORT
// ============================================================================

func metricRows(vals ...Number) []SummaryRow {
	rows := make([]SummaryRow, len(vals))
	for i, v := range vals {
		rows[i] = SummaryRow{
			Key:    GroupKey{{Column: "g", Value: string(rune('a' + i))}},
			Values: map[string]Number{"m": v},
		}
	}
	return rows
}

func ranks(rows []SummaryRow) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Rank
	}
	return out
}

func TestRankIsDense(t *testing.T) {
	rows := metricRows(Some(50), Some(50), Some(30))
	assert.Equal(t, []int{1, 1, 2}, ranks(Rank(rows, "m", Descending)))
	assert.Equal(t, []int{2, 2, 1}, ranks(Rank(rows, "m", Ascending)))
	assert.Equal(t, ranks(Rank(rows, "m", Descending)), ranks(Rank(rows, "m", Descending)), "deterministic")
	assert.Zero(t, rows[0].Rank, "input untouched")
}

func TestRankMissingLast(t *testing.T) {
	rows := metricRows(None(), Some(10), Some(20), None())
	assert.Equal(t, []int{3, 2, 1, 3}, ranks(Rank(rows, "m", Descending)))
	assert.Equal(t, []int{3, 1, 2, 3}, ranks(Rank(rows, "m", Ascending)))
}

func TestRankUnknownMetricSharesOneRank(t *testing.T) {
	rows := metricRows(Some(5), Some(9))
	assert.Equal(t, []int{1, 1}, ranks(Rank(rows, "g", Descending)))
}

func TestSortByNumericGroupColumn(t *testing.T) {
	ds := simpleDataset(
		map[string]any{"cat": "A", "cal": 1000},
		map[string]any{"cat": "B", "cal": 300},
		map[string]any{"cat": "C"},
		map[string]any{"cat": "D", "cal": 90},
	)
	rows, err := GroupSummarize(ds, GroupBy("cal"), Count())
	require.NoError(t, err)

	assert.Equal(t, []string{"90", "300", "1000", ""}, keys(SortBy(rows, "cal", false)))
	assert.Equal(t, []string{"1000", "300", "90", ""}, keys(SortBy(rows, "cal", true)))

	byText, err := GroupSummarize(ds, GroupBy("cat"), Count())
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "C", "B", "A"}, keys(SortBy(byText, "cat", true)))
}

func TestSortByIsStable(t *testing.T) {
	rows := metricRows(Some(5), Some(9), Some(5), None(), Some(9))

	desc := SortBy(rows, "m", true)
	assert.Equal(t, []string{"b", "e", "a", "c", "d"}, keys(desc))

	asc := SortBy(rows, "m", false)
	assert.Equal(t, []string{"a", "c", "b", "e", "d"}, keys(asc))

	byKey := SortBy(rows, "g", true)
	assert.Equal(t, []string{"e", "d", "c", "b", "a"}, keys(byKey))
}

func TestTopN(t *testing.T) {
	rows := metricRows(Some(5), Some(9), Some(7))
	top := TopN(rows, "m", Descending, 2)
	assert.Equal(t, []string{"b", "c"}, keys(top))
	assert.Equal(t, []int{1, 2}, ranks(top))
}

// ============================================================================
// FLATTEN
// ============================================================================

type title struct {
	Name     string
	Type     string
	Year     Number
	ListedIn string
}

var titleAdapter = NewDomainAdapter[title]().
	Dimension("title", func(t title) string { return t.Name }).
	Dimension("type", func(t title) string { return t.Type }).
	Measure("release_year", KindInteger, func(t title) Number { return t.Year }).
	Tags("listed_in", ",", func(t title) string { return t.ListedIn })

func catalog() Dataset {
	return titleAdapter.Bind([]title{
		{"Dick Johnson Is Dead", "Movie", Some(2020), "Documentaries"},
		{"Blood & Water", "TV Show", Some(2021), "International TV Shows, TV Dramas"},
		{"Ganglands", "TV Show", Some(2021), "Crime TV Shows"},
	})
}

func TestFlattenCardinality(t *testing.T) {
	ds := catalog()
	flat, err := Flatten(ds, "listed_in", "")
	require.NoError(t, err)

	require.Equal(t, 4, flat.Len())
	assert.Equal(t, "International TV Shows", flat.Record(1).Dimensions["listed_in"])
	assert.Equal(t, "TV Dramas", flat.Record(2).Dimensions["listed_in"])
	for _, i := range []int{1, 2} {
		r := flat.Record(i)
		assert.Equal(t, "Blood & Water", r.Dimensions["title"])
		assert.Equal(t, "TV Show", r.Dimensions["type"])
		assert.Equal(t, Some(2021), r.Measures["release_year"])
	}

	col, _ := flat.Schema().Lookup("listed_in")
	assert.Equal(t, KindString, col.Kind)
}

func TestFlattenCopiesByValue(t *testing.T) {
	flat, err := Flatten(catalog(), "listed_in", ",")
	require.NoError(t, err)

	flat.Record(1).Dimensions["title"] = "changed"
	assert.Equal(t, "Blood & Water", flat.Record(2).Dimensions["title"])
	assert.Equal(t, "International TV Shows, TV Dramas", catalog().Record(1).Dimensions["listed_in"])
}

func TestFlattenKeepsUntaggedRecords(t *testing.T) {
	ds := titleAdapter.Bind([]title{{"x", "Movie", None(), ""}, {"y", "Movie", None(), " , a ,"}})
	flat, err := Flatten(ds, "listed_in", ",")
	require.NoError(t, err)
	require.Equal(t, 2, flat.Len())
	assert.Equal(t, "", flat.Record(0).Dimensions["listed_in"])
	assert.Equal(t, "a", flat.Record(1).Dimensions["listed_in"])
}

func TestFlattenRejectsNumericColumn(t *testing.T) {
	_, err := Flatten(catalog(), "release_year", ",")
	assert.ErrorIs(t, err, ErrColumnKind)
	_, err = Flatten(catalog(), "genre", ",")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestTagCounts(t *testing.T) {
	rows, err := TagCounts(catalog(), "listed_in", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Documentaries", "International TV Shows", "TV Dramas", "Crime TV Shows"}, keys(rows))
}

// ============================================================================
// EXECUTE
// ============================================================================

func TestExecuteEndToEnd(t *testing.T) {
	ds := simpleDataset(
		map[string]any{"cat": "A", "cal": 700},
		map[string]any{"cat": "A", "cal": 300},
		map[string]any{"cat": "B", "cal": 900},
	)
	a := Analysis{
		Name:         "big_items",
		Where:        []Condition{{Column: "cal", Op: OpGt, Value: "500"}},
		GroupBy:      []string{"cat"},
		Aggregations: []Aggregation{Count(), Mean("cal")},
	}

	res, err := Execute(a, ds)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	assert.Equal(t, "A", res.Rows[0].Key.String())
	assert.Equal(t, 1, res.Rows[0].Count)
	assert.Equal(t, Some(700), res.Rows[0].Values["mean_cal"])
	assert.Equal(t, "B", res.Rows[1].Key.String())
	assert.Equal(t, Some(900), res.Rows[1].Values["mean_cal"])

	assert.Equal(t, []string{"Cat", "Count", "Mean Cal"}, res.Table.Headers())
	assert.Equal(t, [][]string{{"A", "1", "700"}, {"B", "1", "900"}}, res.Table.Rows)
}

func TestExecuteIsIdempotent(t *testing.T) {
	a := Analysis{
		Name:     "genres",
		Flatten:  &FlattenStep{Column: "listed_in"},
		GroupBy:  []string{"listed_in"},
		Rank:     &RankStep{By: "count"},
		Sort:     &SortStep{By: "rank"},
		Chart:    &ChartSpec{Type: "bar"},
		Classify: nil,
	}

	first, err := Execute(a, catalog())
	require.NoError(t, err)
	second, err := Execute(a, catalog())
	require.NoError(t, err)

	b1, err := json.Marshal(first)
	require.NoError(t, err)
	b2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))
}

func TestExecuteClassifyThenGroup(t *testing.T) {
	a := Analysis{
		Name:         "bands",
		Classify:     []ClassifyStep{{Column: "calories", As: "band", Bands: calorieBands.Bands, Otherwise: "High"}},
		GroupBy:      []string{"band"},
		Aggregations: []Aggregation{Count(), Mean("protein")},
		Sort:         &SortStep{By: "band"},
	}
	res, err := Execute(a, menu())
	require.NoError(t, err)
	assert.Equal(t, []string{"High", "Low", "Medium", "Unknown"}, keys(res.Rows))
	assert.Equal(t, "8.50", res.Table.Rows[1][2], "Low band: Veggie Delite 9, Crunchy Taco 8")
	assert.Equal(t, "25", res.Table.Rows[2][2], "Medium band: Fries has no protein value")
}

func TestTableRendersMissingAsLabel(t *testing.T) {
	ds := simpleDataset(
		map[string]any{"cat": "A", "cal": nil},
		map[string]any{"cat": "B", "cal": 1.26},
	)
	a := Analysis{Name: "m", GroupBy: []string{"cat"}, Aggregations: []Aggregation{Mean("cal")}}

	res, err := Execute(a, ds, WithMissingLabel("—"), WithPrecision(1))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "—"}, {"B", "1.3"}}, res.Table.Rows)
}

func TestExecuteValidatesBeforeComputing(t *testing.T) {
	tests := []struct {
		name string
		a    Analysis
		want error
	}{
		{name: "no name", a: Analysis{}, want: ErrInvalidAnalysis},
		{name: "unknown group", a: Analysis{Name: "x", GroupBy: []string{"chain"}}, want: ErrUnknownColumn},
		{name: "unknown filter", a: Analysis{Name: "x", Where: []Condition{{Column: "sodium", Op: OpGt, Value: "1"}}}, want: ErrUnknownColumn},
		{name: "classify text", a: Analysis{Name: "x", Classify: []ClassifyStep{{Column: "item", As: "b", Bands: calorieBands.Bands, Otherwise: "H"}}}, want: ErrColumnKind},
		{name: "bad bands", a: Analysis{Name: "x", Classify: []ClassifyStep{{Column: "calories", As: "b"}}}, want: ErrInvalidBands},
		{name: "sort unknown", a: Analysis{Name: "x", Sort: &SortStep{By: "mean_sodium"}}, want: ErrInvalidAnalysis},
		{name: "rank unknown", a: Analysis{Name: "x", Rank: &RankStep{By: "restaurant"}}, want: ErrInvalidAnalysis},
		{name: "chart unknown", a: Analysis{Name: "x", Chart: &ChartSpec{Type: "pie"}}, want: ErrInvalidAnalysis},
		{name: "box of text", a: Analysis{Name: "x", GroupBy: []string{"restaurant"}, Chart: &ChartSpec{Type: "box", Value: "item"}}, want: ErrColumnKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Execute(tt.a, menu())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Nil(t, res)
		})
	}
}

func TestExecuteLimitAndRankTable(t *testing.T) {
	a := Analysis{
		Name:         "top_calories",
		GroupBy:      []string{"restaurant"},
		Aggregations: []Aggregation{Mean("calories").As("avg_calories")},
		Rank:         &RankStep{By: "avg_calories", Direction: Descending},
		Sort:         &SortStep{By: "rank"},
		Limit:        2,
	}
	res, err := Execute(a, menu())
	require.NoError(t, err)
	assert.Equal(t, []string{"Restaurant", "Avg Calories", "Rank"}, res.Table.Headers())
	assert.Equal(t, [][]string{{"Mcdonalds", "430", "1"}, {"Subway", "415", "2"}}, res.Table.Rows)
}

func TestBoxChart(t *testing.T) {
	a := Analysis{
		Name:    "calorie_spread",
		GroupBy: []string{"restaurant"},
		Chart:   &ChartSpec{Type: "box", Value: "calories"},
	}
	res, err := Execute(a, menu())
	require.NoError(t, err)
	require.NotNil(t, res.Chart)
	require.Len(t, res.Chart.Boxes, 3)

	mcd := res.Chart.Boxes[0]
	assert.Equal(t, "Mcdonalds", mcd.Label)
	assert.Equal(t, 2, mcd.N)
	assert.Equal(t, 320.0, mcd.Min)
	assert.Equal(t, 540.0, mcd.Max)
}

func TestBoxChartMultiColumnGrouping(t *testing.T) {
	schema := Schema{{Name: "r", Kind: KindString}, {Name: "t", Kind: KindString}, {Name: "v", Kind: KindFloat}}
	var records []Record
	for _, c := range []struct {
		r, t string
		v    float64
	}{{"A", "x", 1}, {"A", "y", 100}, {"A", "x", 2}, {"A", "y", 200}} {
		rec := NewRecord()
		rec.Dimensions["r"] = c.r
		rec.Dimensions["t"] = c.t
		rec.Measures["v"] = Some(c.v)
		records = append(records, rec)
	}

	a := Analysis{
		Name:         "spread",
		GroupBy:      []string{"r", "t"},
		Aggregations: []Aggregation{Count()},
		Chart:        &ChartSpec{Type: "box", Value: "v"},
	}
	res, err := Execute(a, NewDataset(schema, records))
	require.NoError(t, err)
	require.Len(t, res.Chart.Boxes, 2)

	ax, ay := res.Chart.Boxes[0], res.Chart.Boxes[1]
	assert.Equal(t, "A / x", ax.Label)
	assert.Equal(t, 2, ax.N)
	assert.Equal(t, 1.0, ax.Min)
	assert.Equal(t, 2.0, ax.Max)

	assert.Equal(t, "A / y", ay.Label)
	assert.Equal(t, 2, ay.N)
	assert.Equal(t, 100.0, ay.Min)
	assert.Equal(t, 200.0, ay.Max)
}

// ============================================================================
// NUMBER + DESCRIBE
// ============================================================================

func TestNumberJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Number{"a": Some(1.5), "b": None()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null}`, string(b))

	var n Number
	require.NoError(t, json.Unmarshal([]byte("null"), &n))
	assert.False(t, n.Valid())
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, Some(1234.5), ParseNumber(" 1,234.5 "))
	assert.False(t, ParseNumber("NA").Valid())
	assert.False(t, ParseNumber("").Valid())
	assert.False(t, ParseNumber("twelve").Valid())

	tests := []struct {
		in    string
		want  float64
		valid bool
	}{
		{"1,234", 1234, true},
		{"-12,345,678.25", -12345678.25, true},
		{"999", 999, true},
		{"1,2", 0, false},
		{"3,,4", 0, false},
		{"1234,567", 0, false},
		{",123", 0, false},
		{"1,234.5,6", 0, false},
		{"12,34a", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, ok := ParseNumber(tt.in).Get()
			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	profiles := Describe(menu())
	require.Len(t, profiles, 5)

	cal := profiles[2]
	assert.Equal(t, "calories", cal.Column)
	assert.Equal(t, 5, cal.Count)
	assert.Equal(t, 1, cal.Missing)
	assert.Equal(t, Some(372), cal.Mean)
	assert.Equal(t, Some(170), cal.Min)
	assert.Equal(t, Some(600), cal.Max)
	assert.True(t, cal.Std.Valid())

	rest := profiles[0]
	assert.Equal(t, 3, rest.Distinct)
	assert.False(t, rest.Mean.Valid())
}
