package common_test

import (
	"context"
	"errors"
	"testing"
	"time"

	ispec "github.com/opencontainers/image-spec/specs-go/v1"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/tagsweep/tagsweep/pkg/common"
)

func TestCommon(t *testing.T) {
	Convey("Contains", t, func() {
		So(common.Contains([]string{"a", "b"}, "b"), ShouldBeTrue)
		So(common.Contains([]string{"a", "b"}, "c"), ShouldBeFalse)
		So(common.Contains([]int{}, 1), ShouldBeFalse)
	})

	Convey("TypeOf", t, func() {
		So(common.TypeOf(errors.New("err")), ShouldEqual, "*errors.errorString")
	})

	Convey("IsContextDone", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		So(common.IsContextDone(ctx), ShouldBeFalse)

		cancel()
		So(common.IsContextDone(ctx), ShouldBeTrue)
	})
}

func TestRetryWithContext(t *testing.T) {
	Convey("RetryWithContext", t, func() {
		Convey("returns nil once the operation succeeds", func() {
			attempts := 0

			err := common.RetryWithContext(context.Background(),
				func(attempt int, retryIn time.Duration) error {
					attempts++
					if attempts < 3 {
						return errors.New("transient")
					}

					return nil
				}, 5, time.Millisecond)

			So(err, ShouldBeNil)
			So(attempts, ShouldEqual, 3)
		})

		Convey("gives up after maxRetries", func() {
			attempts := 0

			err := common.RetryWithContext(context.Background(),
				func(attempt int, retryIn time.Duration) error {
					attempts++

					return errors.New("permanent")
				}, 3, time.Millisecond)

			So(err, ShouldNotBeNil)
			So(attempts, ShouldEqual, 3)
		})

		Convey("stops early when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			attempts := 0

			err := common.RetryWithContext(ctx,
				func(attempt int, retryIn time.Duration) error {
					attempts++

					return errors.New("transient")
				}, 5, time.Minute)

			So(err, ShouldNotBeNil)
			So(attempts, ShouldEqual, 1)
		})
	})
}

func TestGetImageLastUpdated(t *testing.T) {
	Convey("GetImageLastUpdated", t, func() {
		created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		Convey("prefers the created timestamp", func() {
			image := ispec.Image{Created: &created}

			So(common.GetImageLastUpdated(image), ShouldEqual, created)
		})

		Convey("falls back to the last history entry", func() {
			older := created.Add(-24 * time.Hour)
			image := ispec.Image{
				History: []ispec.History{{Created: &older}, {Created: &created}},
			}

			So(common.GetImageLastUpdated(image), ShouldEqual, created)
		})

		Convey("returns the zero time when nothing is set", func() {
			So(common.GetImageLastUpdated(ispec.Image{}).IsZero(), ShouldBeTrue)
		})
	})
}
