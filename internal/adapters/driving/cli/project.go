package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// projectFlags holds the flags describing the design's project.
type projectFlags struct {
	buildingType string
	stories      int
	occupancy    string
	accessible   bool
	sprinklered  bool
}

func addProjectFlags(cmd *cobra.Command, f *projectFlags) {
	cmd.Flags().StringVar(&f.buildingType, "building-type", "", "building type, e.g. residential or commercial")
	cmd.Flags().IntVar(&f.stories, "stories", 0, "number of storeys above grade")
	cmd.Flags().StringVar(&f.occupancy, "occupancy", "", "occupancy classification")
	cmd.Flags().BoolVar(&f.accessible, "accessible", false, "barrier-free design is required")
	cmd.Flags().BoolVar(&f.sprinklered, "sprinklered", false, "the building is sprinklered")
}

// context builds the project context. Boolean facts are only known when the
// flag was given, so --accessible=false differs from omitting it.
func (f *projectFlags) context(cmd *cobra.Command) domain.ProjectContext {
	project := domain.ProjectContext{
		BuildingType: f.buildingType,
		Stories:      f.stories,
		Occupancy:    f.occupancy,
	}
	if cmd.Flags().Changed("accessible") {
		project.Accessible = domain.Bool(f.accessible)
	}
	if cmd.Flags().Changed("sprinklered") {
		project.Sprinklered = domain.Bool(f.sprinklered)
	}
	return project
}
