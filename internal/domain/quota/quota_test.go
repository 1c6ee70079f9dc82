package quota_test

import (
	"math/rand"
	"testing"

	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/internal/domain/quota"
	. "github.com/smartystreets/goconvey/convey"
)

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func TestRoundRobin(t *testing.T) {
	Convey("Given a pool that does not divide evenly", t, func() {
		q := quota.RoundRobin(7, 3)

		Convey("Then the remainder goes to the leading slots", func() {
			So(q, ShouldResemble, []int{3, 2, 2})
			So(sum(q), ShouldEqual, 7)
		})
	})

	Convey("Given fewer items than slots", t, func() {
		So(quota.RoundRobin(2, 4), ShouldResemble, []int{1, 1, 0, 0})
	})

	Convey("Given an empty pool", t, func() {
		So(quota.RoundRobin(0, 3), ShouldResemble, []int{0, 0, 0})
	})

	Convey("Given no slots", t, func() {
		So(quota.RoundRobin(5, 0), ShouldBeNil)
	})

	Convey("Given arbitrary sizes", t, func() {
		for n := 0; n < 40; n++ {
			for p := 1; p < 9; p++ {
				q := quota.RoundRobin(n, p)
				So(sum(q), ShouldEqual, n)
				So(q[0]-q[p-1], ShouldBeBetweenOrEqual, 0, 1)
			}
		}
	})
}

func TestCompute(t *testing.T) {
	Convey("Given managers and engineers", t, func() {
		q := quota.Compute(4, 10, 3)

		Convey("Then both roles are dealt independently", func() {
			So(q.Managers, ShouldResemble, []int{2, 1, 1})
			So(q.Engineers, ShouldResemble, []int{4, 3, 3})
		})
	})
}

func TestShuffle(t *testing.T) {
	Convey("Given a list of projects", t, func() {
		projects := []model.Project{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}}

		Convey("When shuffled twice with the same seed", func() {
			first := quota.Shuffle(projects, rand.New(rand.NewSource(7)))
			second := quota.Shuffle(projects, rand.New(rand.NewSource(7)))

			Convey("Then the order is reproducible", func() {
				So(first, ShouldResemble, second)
			})

			Convey("Then the input is left untouched", func() {
				So(projects[0].ID, ShouldEqual, "a")
				So(projects[4].ID, ShouldEqual, "e")
			})

			Convey("Then no project is lost", func() {
				seen := map[string]bool{}
				for _, p := range first {
					seen[p.ID] = true
				}
				So(len(seen), ShouldEqual, len(projects))
			})
		})

		Convey("When shuffled with many seeds", func() {
			leaders := map[string]bool{}
			for seed := int64(1); seed <= 50; seed++ {
				leaders[quota.Shuffle(projects, rand.New(rand.NewSource(seed)))[0].ID] = true
			}

			Convey("Then the extra headcount does not always go to the same project", func() {
				So(len(leaders), ShouldBeGreaterThan, 1)
			})
		})
	})
}
