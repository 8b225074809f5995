package sampler

import (
	"testing"

	"go.viam.com/test"
)

func testConfig() Config {
	return Config{
		TimeHorizons:            []float64{2, 4, 6},
		LateralOffsets:          []float64{-3.5, 0, 3.5},
		LateralDistanceHorizons: []float64{30, 50},
	}
}

func TestLateralEndConditionsIsCartesianProduct(t *testing.T) {
	s := New(testConfig())
	conds := s.LateralEndConditions()
	test.That(t, len(conds), test.ShouldEqual, 6)
	for _, c := range conds {
		test.That(t, c.V, test.ShouldAlmostEqual, 0.0, 1e-9)
		test.That(t, c.A, test.ShouldAlmostEqual, 0.0, 1e-9)
	}
}

func TestCruisingEndConditionsTargetSpeed(t *testing.T) {
	s := New(testConfig())
	conds := s.CruisingEndConditions(12.0)
	test.That(t, len(conds), test.ShouldEqual, 3)
	for _, c := range conds {
		test.That(t, c.V, test.ShouldAlmostEqual, 12.0, 1e-9)
	}
}

func TestStoppingEndConditionsTargetPosition(t *testing.T) {
	s := New(testConfig())
	conds := s.StoppingEndConditions(80.0)
	for _, c := range conds {
		test.That(t, c.X, test.ShouldAlmostEqual, 80.0, 1e-9)
		test.That(t, c.V, test.ShouldAlmostEqual, 0.0, 1e-9)
	}
}

func TestFollowLeaderEndConditionsRespectsGap(t *testing.T) {
	s := New(testConfig())
	conds := s.FollowLeaderEndConditions(50, 10, 4.5, 4.5, 1.5, 2.0)
	test.That(t, len(conds), test.ShouldEqual, 3)
	for i, c := range conds {
		horizon := testConfig().TimeHorizons[i]
		wantS := 50 + 10*horizon - 4.5 - (2.0 + 1.5*10)
		test.That(t, c.X, test.ShouldAlmostEqual, wantS, 1e-9)
		test.That(t, c.V, test.ShouldAlmostEqual, 10.0, 1e-9)
	}
}
