package refdata

// ClusteringRun is one row of the offline clustering comparison. Metrics are
// nil when the run did not produce them.
type ClusteringRun struct {
	Model            string
	NClusters        *int
	Silhouette       *float64
	DaviesBouldin    *float64
	CalinskiHarabasz *float64
	TrainingTime     *float64
	Status           string
}

// LoadClusteringRuns reads the comparison table verbatim.
func LoadClusteringRuns(path string) ([]ClusteringRun, error) {
	runs := make([]ClusteringRun, 0)

	err := forEachRecord(path, []string{"Model"}, func(h header, record []string) error {
		run := ClusteringRun{
			Model:            h.str(record, "Model"),
			Silhouette:       h.floatPtr(record, "Silhouette"),
			DaviesBouldin:    h.floatPtr(record, "Davies_Bouldin"),
			CalinskiHarabasz: h.floatPtr(record, "Calinski_Harabasz"),
			TrainingTime:     h.floatPtr(record, "Training_Time"),
			Status:           cleanLabel(h.str(record, "Status")),
		}
		if n, ok := h.float(record, "N_Clusters"); ok {
			k := int(n)
			run.NClusters = &k
		}
		if run.Status == "" {
			run.Status = "Unknown"
		}

		runs = append(runs, run)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}
