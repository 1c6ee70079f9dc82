package types_test

import (
	"testing"
	"time"

	"github.com/okian/cohort/internal/domain/model"
	types "github.com/okian/cohort/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromRun(t *testing.T) {
	Convey("Given a finished run", t, func() {
		now := time.Now()
		run := model.Run{
			ID:           "r1",
			SemesterID:   "fall",
			State:        model.RunSucceeded,
			SolverStatus: "OPTIMAL",
			Objective:    108,
			Assignment:   model.Assignment{"a": "p1", "b": "p2"},
			CreatedAt:    now,
			FinishedAt:   now,
		}

		Convey("When converted", func() {
			v := types.FromRun(run)

			Convey("Then fields carry over and unset times are omitted", func() {
				So(v.ID, ShouldEqual, "r1")
				So(v.State, ShouldEqual, model.RunSucceeded)
				So(v.Assigned, ShouldEqual, 2)
				So(v.StartedAt, ShouldBeNil)
				So(v.FinishedAt, ShouldNotBeNil)
			})
		})
	})
}

func TestPlacements(t *testing.T) {
	Convey("Given an assignment", t, func() {
		a := model.Assignment{"c": "p1", "a": "p2", "b": "p1"}

		Convey("Then placements are ordered by participant", func() {
			ps := types.Placements(a)
			So(len(ps), ShouldEqual, 3)
			So(ps[0], ShouldResemble, types.Placement{ParticipantID: "a", ProjectID: "p2"})
			So(ps[2].ParticipantID, ShouldEqual, "c")
		})
	})
}
