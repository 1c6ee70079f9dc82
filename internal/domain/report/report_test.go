package report_test

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/okian/cohort/internal/domain/assignment"
	"github.com/okian/cohort/internal/domain/matching"
	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/internal/domain/report"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"
)

func fixture() (*assignment.Problem, model.Assignment) {
	people := []model.Participant{
		{
			ID: "2", FirstName: "Grace", LastName: "Hopper", Email: "grace@example.org",
			Role: model.RoleEngineer, ProjectPrefs: [3]string{"p2", "p1"},
			PartnerPrefs: [3]string{"Ada Lovelace", "", "Someone Unknown Entirely"},
		},
		{
			ID: "1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.org",
			Role: model.RoleManager, International: true, ProjectPrefs: [3]string{"p1"},
		},
		{
			ID: "3", FirstName: "Alan", LastName: "Turing", Role: model.RoleEngineer,
		},
	}
	projects := []model.Project{{ID: "p1", Name: "Compiler"}, {ID: "p2", Name: "Kernel"}}
	pb, err := assignment.NewProblem(people, projects, 1, matching.NewFuzzyResolver())
	if err != nil {
		panic(err)
	}
	return pb, model.Assignment{"1": "p1", "2": "p1", "3": "p2"}
}

func TestBuild(t *testing.T) {
	Convey("Given a solved problem", t, func() {
		pb, a := fixture()

		Convey("When the report is built", func() {
			rows := report.Build(pb, a)

			Convey("Then rows are ordered by name", func() {
				So(len(rows), ShouldEqual, 3)
				So(rows[0].Name, ShouldEqual, "Grace Hopper")
				So(rows[1].Name, ShouldEqual, "Ada Lovelace")
				So(rows[2].Name, ShouldEqual, "Alan Turing")
			})

			Convey("Then the met preference rank is reported", func() {
				So(rows[0].PreferenceRank, ShouldEqual, 2)
				So(rows[1].PreferenceRank, ShouldEqual, 1)
				So(rows[2].PreferenceRank, ShouldEqual, 0)
			})

			Convey("Then projects are shown by name", func() {
				So(rows[0].Project, ShouldEqual, "Compiler")
				So(rows[2].Project, ShouldEqual, "Kernel")
			})

			Convey("Then partners show names or quoted raw text", func() {
				So(rows[0].Partners[0], ShouldEqual, "Ada Lovelace")
				So(rows[0].Partners[1], ShouldEqual, "")
				So(rows[0].Partners[2], ShouldEqual, `"Someone Unknown Entirely"`)
				So(rows[0].PartnersTogether, ShouldEqual, 1)
			})

			Convey("Then records follow the header", func() {
				rec := rows[1].Record()
				So(len(rec), ShouldEqual, len(report.Header))
				So(rec[2], ShouldEqual, "manager")
				So(rec[4], ShouldEqual, "yes")
				So(rec[5], ShouldEqual, "1st")
				So(rows[2].Record()[5], ShouldEqual, "")
			})
		})
	})
}

func TestWriteCSV(t *testing.T) {
	Convey("Given report rows", t, func() {
		pb, a := fixture()
		rows := report.Build(pb, a)

		Convey("When written as CSV", func() {
			var buf bytes.Buffer
			So(report.WriteCSV(&buf, rows), ShouldBeNil)

			Convey("Then it parses back with a header line", func() {
				records, err := csv.NewReader(&buf).ReadAll()
				So(err, ShouldBeNil)
				So(len(records), ShouldEqual, 4)
				So(records[0], ShouldResemble, report.Header)
				So(records[1][0], ShouldEqual, "Grace Hopper")
				So(records[1][9], ShouldEqual, `"Someone Unknown Entirely"`)
			})
		})
	})
}

func TestWriteXLSX(t *testing.T) {
	Convey("Given report rows", t, func() {
		pb, a := fixture()
		rows := report.Build(pb, a)

		Convey("When written as a workbook", func() {
			var buf bytes.Buffer
			So(report.WriteXLSX(&buf, rows), ShouldBeNil)

			Convey("Then the sheet holds the header and every row", func() {
				f, err := excelize.OpenReader(&buf)
				So(err, ShouldBeNil)
				defer f.Close()

				got, err := f.GetRows(report.SheetName)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 4)
				So(got[0][0], ShouldEqual, "Name")
				So(got[3][0], ShouldEqual, "Alan Turing")
				So(got[2][3], ShouldEqual, "Compiler")
			})
		})
	})
}
