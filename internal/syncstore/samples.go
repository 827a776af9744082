package syncstore

import (
	"time"

	"github.com/qytetaret/synckit/internal/model"
)

// sampleReports returns the records seeded into an empty local store
// when the gateway is unreachable at startup, so the application has
// something to show in fallback mode.
func sampleReports(now time.Time) []model.Report {
	return []model.Report{
		{
			ID:           "sample-1",
			Title:        "Gropë e madhe në rrugë",
			Description:  "Gropë e thellë në mes të rrugës që dëmton makinat.",
			Category:     "infrastructure",
			Subcategory:  "road-damage",
			Address:      "Rruga e Kavajës 112",
			Neighborhood: "njesia5",
			Lat:          41.3275,
			Lng:          19.8087,
			Severity:     model.SeverityHigh,
			Status:       model.StatusPending,
			CreatedAt:    now.Add(-72 * time.Hour),
			UserID:       model.AnonymousUserID,
		},
		{
			ID:           "sample-2",
			Title:        "Ndriçimi i rrugës nuk punon",
			Description:  "Llambat e rrugës janë të fikura prej dy javësh.",
			Category:     "utilities",
			Subcategory:  "street-lighting",
			Address:      "Bulevardi Zogu I",
			Neighborhood: "njesia9",
			Lat:          41.3342,
			Lng:          19.8166,
			Severity:     model.SeverityMedium,
			Status:       model.StatusInProgress,
			StatusHistory: map[string]model.StatusChange{
				model.StatusInProgress: {
					Date:    now.Add(-24 * time.Hour),
					Comment: "Ekipi i mirëmbajtjes është njoftuar.",
				},
			},
			CreatedAt: now.Add(-14 * 24 * time.Hour),
			UserID:    model.AnonymousUserID,
		},
		{
			ID:           "sample-3",
			Title:        "Mbeturina të pambledhura",
			Description:  "Kontejnerët nuk janë zbrazur prej disa ditësh.",
			Category:     "sanitation",
			Subcategory:  "waste-collection",
			Address:      "Rruga Myslym Shyri 45",
			Neighborhood: "njesia10",
			Lat:          41.3221,
			Lng:          19.8114,
			Severity:     model.SeverityLow,
			Status:       model.StatusResolved,
			StatusHistory: map[string]model.StatusChange{
				model.StatusResolved: {
					Date:    now.Add(-48 * time.Hour),
					Comment: "Mbeturinat u mblodhën.",
				},
			},
			CreatedAt: now.Add(-7 * 24 * time.Hour),
			UserID:    model.AnonymousUserID,
		},
	}
}
