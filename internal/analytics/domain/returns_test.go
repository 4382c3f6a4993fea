package domain

import (
	"errors"
	"math"
	"testing"
)

func TestComputeSimpleReturns(t *testing.T) {
	got, err := ComputeReturns([]float64{100, 110, 121}, ReturnSimple, 0)
	if err != nil {
		t.Fatalf("ComputeReturns: %v", err)
	}
	want := []float64{0.1, 0.1}
	if len(got) != len(want) {
		t.Fatalf("got %d returns, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("return[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestComputeLogReturns(t *testing.T) {
	got, err := ComputeReturns([]float64{100, 110, 121}, ReturnLog, 0)
	if err != nil {
		t.Fatalf("ComputeReturns: %v", err)
	}
	want := math.Log(1.1)
	for i, r := range got {
		if math.Abs(r-want) > 1e-12 {
			t.Errorf("return[%d] = %v, want %v", i, r, want)
		}
	}
}

func TestComputeReturnsTail(t *testing.T) {
	got, err := ComputeReturns([]float64{100, 101, 102, 103, 104}, ReturnSimple, 2)
	if err != nil {
		t.Fatalf("ComputeReturns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("tail: got %d returns, want 2", len(got))
	}
	if math.Abs(got[1]-(104.0/103.0-1)) > 1e-12 {
		t.Errorf("last return = %v, want %v", got[1], 104.0/103.0-1)
	}
}

func TestComputeReturnsInvalid(t *testing.T) {
	cases := []struct {
		name   string
		prices []float64
	}{
		{"single price", []float64{100}},
		{"empty", nil},
		{"zero price", []float64{100, 0, 102}},
		{"negative price", []float64{100, -5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ComputeReturns(tc.prices, ReturnSimple, 0); !errors.Is(err, ErrInsufficientData) {
				t.Errorf("err = %v, want ErrInsufficientData", err)
			}
		})
	}
}

func TestBuildReturnMatrixAlignment(t *testing.T) {
	series := []PriceSeries{
		{Ticker: "AAA", Prices: []float64{100, 101, 102, 103, 104}},
		{Ticker: "BBB", Prices: []float64{50, 51, 52}},
		{Ticker: "BAD", Prices: []float64{10}}, // 价格不足，应被剔除
	}
	m, err := BuildReturnMatrix(series, ReturnSimple, 0)
	if err != nil {
		t.Fatalf("BuildReturnMatrix: %v", err)
	}
	if len(m.Tickers) != 2 {
		t.Fatalf("tickers = %v, want [AAA BBB]", m.Tickers)
	}
	if m.Observations() != 2 {
		t.Errorf("observations = %d, want 2 (aligned to shortest)", m.Observations())
	}
	// AAA 截断后保留尾部两个收益率
	aaa := m.Series("AAA")
	if math.Abs(aaa[1]-(104.0/103.0-1)) > 1e-12 {
		t.Errorf("AAA last return = %v, want %v", aaa[1], 104.0/103.0-1)
	}
	if m.Series("BAD") != nil {
		t.Error("BAD should have been dropped")
	}
}

func TestBuildReturnMatrixAllDropped(t *testing.T) {
	if _, err := BuildReturnMatrix([]PriceSeries{{Ticker: "X", Prices: []float64{1}}}, ReturnLog, 0); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
}
