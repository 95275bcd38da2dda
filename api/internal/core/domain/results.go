package domain

// RatingAverages is the per-member aggregation of every response naming them
// as the evaluated party. A member with zero responses gets all-zero averages.
type RatingAverages struct {
	Question1 float64 `json:"question_1"`
	Question2 float64 `json:"question_2"`
	Question3 float64 `json:"question_3"`
	Question4 float64 `json:"question_4"`
	Overall   float64 `json:"overall"`
}

// ResponseComments is one decrypted comment pair. When decryption of a field
// fails the raw ciphertext is substituted so partial results still render.
type ResponseComments struct {
	Positive    string `json:"positive"`
	Improvement string `json:"improvement"`
}

// MemberResult is one entry of the consolidated result set a manager reviews.
type MemberResult struct {
	Member        *Member            `json:"member"`
	Averages      RatingAverages     `json:"averages"`
	Comments      []ResponseComments `json:"comments"`
	ResponseCount int                `json:"response_count"`
}

// AggregateRatings averages each dimension plus an overall mean.
// Never divides by zero.
func AggregateRatings(ratings []Ratings) RatingAverages {
	if len(ratings) == 0 {
		return RatingAverages{}
	}

	var sum [4]int
	for _, r := range ratings {
		sum[0] += r.Question1
		sum[1] += r.Question2
		sum[2] += r.Question3
		sum[3] += r.Question4
	}

	n := float64(len(ratings))
	avg := RatingAverages{
		Question1: float64(sum[0]) / n,
		Question2: float64(sum[1]) / n,
		Question3: float64(sum[2]) / n,
		Question4: float64(sum[3]) / n,
	}
	avg.Overall = (avg.Question1 + avg.Question2 + avg.Question3 + avg.Question4) / 4
	return avg
}
