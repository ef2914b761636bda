package email

const (
	subjectLeadAssignedFmt = "Nou lead assignat: %s"
	subjectRedistribution  = "Cartera de leads redistribuïda"
)
