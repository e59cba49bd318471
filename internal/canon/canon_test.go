package canon

import (
	"math"
	"testing"

	"github.com/prometheus/common/model"
)

func TestHasherDeterministic(t *testing.T) {
	a := NewHasher().PutString("f1").PutBool(true).PutFloat64(1.5).Sum()
	b := NewHasher().PutString("f1").PutBool(true).PutFloat64(1.5).Sum()
	if a != b {
		t.Fatalf("same input hashed differently: %v vs %v", a, b)
	}
}

func TestHasherFieldBoundaries(t *testing.T) {
	a := NewHasher().PutString("ab").PutString("c").Sum()
	b := NewHasher().PutString("a").PutString("bc").Sum()
	if a == b {
		t.Errorf("adjacent strings aliased: %v", a)
	}
}

func TestHasherFloatNormalization(t *testing.T) {
	nan1 := math.NaN()
	nan2 := math.Float64frombits(math.Float64bits(nan1) ^ 0x2)
	if NewHasher().PutFloat64(nan1).Sum() != NewHasher().PutFloat64(nan2).Sum() {
		t.Error("NaN payloads should hash alike")
	}
	if NewHasher().PutFloat64(math.Copysign(0, -1)).Sum() != NewHasher().PutFloat64(0).Sum() {
		t.Error("-0 and +0 should hash alike")
	}
}

func TestCombineOrderedIsOrderSensitive(t *testing.T) {
	x := model.Fingerprint(1)
	y := model.Fingerprint(2)
	if CombineOrdered(x, y) == CombineOrdered(y, x) {
		t.Error("CombineOrdered must depend on sequence order")
	}
	if CombineOrdered(x) == CombineOrdered(x, x) {
		t.Error("CombineOrdered must depend on sequence length")
	}
	if CombineOrdered(x, y) != CombineOrdered(x, y) {
		t.Error("CombineOrdered is not deterministic")
	}
}

func TestChain(t *testing.T) {
	tests := []struct {
		name  string
		chain Chain
		want  int
	}{
		{"all equal", Chain{}.Strings("a", "a").TrueFirst(true, true).Float64s(1, 1), 0},
		{"string decides", Chain{}.Strings("a", "b").TrueFirst(false, true), -1},
		{"empty sorts first", Chain{}.Strings("", "a"), -1},
		{"true first", Chain{}.Strings("a", "a").TrueFirst(true, false), -1},
		{"false after true", Chain{}.TrueFirst(false, true), 1},
		{"nan equal", Chain{}.Float64s(math.NaN(), math.NaN()), 0},
		{"nan first", Chain{}.Float64s(math.NaN(), 0), -1},
		{"then normalized", Chain{}.Then(func() int { return 42 }), 1},
	}
	for _, tt := range tests {
		if got := tt.chain.Result(); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestChainShortCircuits(t *testing.T) {
	called := false
	Chain{}.Strings("b", "a").Then(func() int {
		called = true
		return 0
	})
	if called {
		t.Error("Then ran after a decided comparison")
	}
}

func TestLexicographic(t *testing.T) {
	ints := func(a, b int) int { return a - b }
	tests := []struct {
		a, b []int
		want int
	}{
		{nil, nil, 0},
		{nil, []int{}, 0},
		{[]int{1, 2}, []int{1, 2}, 0},
		{[]int{1}, []int{1, 2}, -1},
		{[]int{1, 3}, []int{1, 2}, 1},
		{[]int{0, 9}, []int{1}, -1},
	}
	for _, tt := range tests {
		if got := Lexicographic(tt.a, tt.b, ints); got != tt.want {
			t.Errorf("Lexicographic(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNullsFirst(t *testing.T) {
	one, two := 1, 2
	cmpInt := func(a, b *int) int { return *a - *b }
	if got := NullsFirst(nil, &one, cmpInt); got != -1 {
		t.Errorf("nil vs value: got %d", got)
	}
	if got := NullsFirst(&one, nil, cmpInt); got != 1 {
		t.Errorf("value vs nil: got %d", got)
	}
	if got := NullsFirst[int](nil, nil, cmpInt); got != 0 {
		t.Errorf("nil vs nil: got %d", got)
	}
	if got := NullsFirst(&two, &one, cmpInt); got != 1 {
		t.Errorf("2 vs 1: got %d", got)
	}
}
