package builtin_test

import (
	"context"
	"testing"

	"github.com/okian/semstat/internal/builtin"
	"github.com/okian/semstat/internal/domain/registry"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPackages(t *testing.T) {
	Convey("Given the builtin packages", t, func() {
		pkgs, err := builtin.Packages()

		Convey("Then they parse in registration order", func() {
			So(err, ShouldBeNil)
			var ids []string
			for _, p := range pkgs {
				ids = append(ids, p.ID())
			}
			So(ids, ShouldResemble, []string{builtin.RelationshipsID, builtin.PersonalityID, builtin.MoodID})
		})

		Convey("When registered", func() {
			reg := registry.New()
			So(builtin.Register(context.Background(), reg), ShouldBeNil)

			Convey("Then mood is derivable from the other packages", func() {
				apps := reg.ApplicableDerivations(nil, nil)
				So(apps, ShouldHaveLength, 1)
				So(apps[0].Capability.ID, ShouldEqual, "mood_from_sentiment")
				So(apps[0].PackageID, ShouldEqual, builtin.MoodID)
			})

			Convey("Then positive_sentiment resolves in package order", func() {
				refs := reg.AxesBySemanticType("positive_sentiment", nil)
				var names []string
				for _, r := range refs {
					names = append(names, r.DefinitionID+"."+r.Axis.Name)
				}
				So(names, ShouldResemble, []string{"relationships.affinity", "personality.agreeableness", "mood.valence"})
			})

			Convey("Then the relationships definition carries its tiers and levels", func() {
				def, ok := reg.Definition("relationships", nil)
				So(ok, ShouldBeTrue)
				So(def.Levels(), ShouldHaveLength, 3)
				So(def.Tiers(), ShouldHaveLength, 6)
			})
		})
	})
}
