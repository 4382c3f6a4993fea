package domain

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func testCorrelationMatrix(t *testing.T) *ReturnMatrix {
	t.Helper()
	a := []float64{0.010, -0.005, 0.002, 0.007, -0.001, 0.004, -0.008, 0.006}
	b := make([]float64, len(a))
	c := make([]float64, len(a))
	for i, v := range a {
		b[i] = 2 * v // 与 a 完全正相关
		c[i] = -v    // 与 a/b 完全负相关
	}
	return &ReturnMatrix{
		Tickers: []string{"AAA", "BBB", "CCC"},
		Data:    [][]float64{a, b, c},
	}
}

func TestAnalyzeCorrelation(t *testing.T) {
	res, err := AnalyzeCorrelation(testCorrelationMatrix(t))
	if err != nil {
		t.Fatalf("AnalyzeCorrelation: %v", err)
	}

	if math.Abs(res.Matrix[0][1]-1) > 1e-9 {
		t.Errorf("corr(AAA,BBB) = %v, want 1", res.Matrix[0][1])
	}
	if math.Abs(res.Matrix[0][2]+1) > 1e-9 {
		t.Errorf("corr(AAA,CCC) = %v, want -1", res.Matrix[0][2])
	}
	if res.Matrix[1][2] != res.Matrix[2][1] {
		t.Error("matrix should be symmetric")
	}
	for i := range res.Tickers {
		if res.Matrix[i][i] != 1 {
			t.Errorf("diagonal[%d] = %v, want 1", i, res.Matrix[i][i])
		}
	}

	// 上三角: +1, -1, -1 → 平均 -1/3
	if math.Abs(res.AvgCorrelation+1.0/3.0) > 1e-9 {
		t.Errorf("avg correlation = %v, want -1/3", res.AvgCorrelation)
	}
	if math.Abs(res.DiversificationScore-2.0/3.0) > 1e-9 {
		t.Errorf("diversification score = %v, want 2/3", res.DiversificationScore)
	}

	if len(res.HighCorrPairs) != 1 || res.HighCorrPairs[0].Pair != "AAA-BBB" {
		t.Errorf("high corr pairs = %+v, want single AAA-BBB", res.HighCorrPairs)
	}
	if len(res.NegativeCorrPairs) != 2 {
		t.Errorf("negative corr pairs = %+v, want 2 entries", res.NegativeCorrPairs)
	}
	if len(res.LowCorrPairs) != 0 {
		t.Errorf("low corr pairs = %+v, want none", res.LowCorrPairs)
	}

	for _, want := range []string{"Excellent diversification", "acceptable", "Found 2 negative correlations"} {
		if !strings.Contains(res.Interpretation, want) {
			t.Errorf("interpretation %q missing %q", res.Interpretation, want)
		}
	}
}

func TestAnalyzeCorrelationConstantSeries(t *testing.T) {
	// 零方差序列的相关系数无定义，按 0 处理并归入低相关配对
	m := &ReturnMatrix{
		Tickers: []string{"AAA", "FLAT"},
		Data: [][]float64{
			{0.01, -0.005, 0.002, 0.007},
			{0.001953125, 0.001953125, 0.001953125, 0.001953125},
		},
	}
	res, err := AnalyzeCorrelation(m)
	if err != nil {
		t.Fatalf("AnalyzeCorrelation: %v", err)
	}
	if res.Matrix[0][1] != 0 {
		t.Errorf("corr with constant series = %v, want 0", res.Matrix[0][1])
	}
	if len(res.LowCorrPairs) != 1 {
		t.Errorf("low corr pairs = %+v, want the AAA-FLAT pair", res.LowCorrPairs)
	}
}

func TestAnalyzeCorrelationNeedsTwoAssets(t *testing.T) {
	m := &ReturnMatrix{Tickers: []string{"ONLY"}, Data: [][]float64{{0.01, 0.02}}}
	if _, err := AnalyzeCorrelation(m); !errors.Is(err, ErrNeedTwoAssets) {
		t.Errorf("err = %v, want ErrNeedTwoAssets", err)
	}
}
