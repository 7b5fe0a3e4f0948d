package retention_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tagsweep/tagsweep/pkg/retention"
)

func TestRegexMatcher(t *testing.T) {
	Convey("matcher handles literal names and regexes", t, func() {
		matcher := retention.NewRegexMatcher()

		Convey("an empty pattern list matches nothing", func() {
			So(matcher.Matches("latest", nil), ShouldBeFalse)
			So(matcher.Matches("latest", []string{}), ShouldBeFalse)
		})

		Convey("literal names match exactly", func() {
			So(matcher.Matches("latest", []string{"latest"}), ShouldBeTrue)
			So(matcher.Matches("stable", []string{"latest"}), ShouldBeFalse)
		})

		Convey("regex patterns match", func() {
			patterns := []string{`^v\d+\.\d+\.\d+$`}

			So(matcher.Matches("v1.2.3", patterns), ShouldBeTrue)
			So(matcher.Matches("v1.2.3-rc1", patterns), ShouldBeFalse)
			So(matcher.Matches("dev", patterns), ShouldBeFalse)
		})

		Convey("compiled patterns are reused across calls", func() {
			patterns := []string{`^release-`}

			So(matcher.Matches("release-2024", patterns), ShouldBeTrue)
			So(matcher.Matches("release-2025", patterns), ShouldBeTrue)
			So(matcher.Matches("nightly", patterns), ShouldBeFalse)
		})
	})
}
