package crm

// Lead is a CRM contact as returned by the API.
type Lead struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Email   string            `json:"email"`
	Phone   string            `json:"phone,omitempty"`
	TaxID   string            `json:"document,omitempty"`
	Address string            `json:"address,omitempty"`
	Custom  map[string]string `json:"customFields,omitempty"`
	Tags    []Tag             `json:"tags,omitempty"`
}

// Tag is a CRM tag attachable to leads.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Business is a CRM deal attached to a lead. ExternalID carries the sale
// transaction id and is the idempotency key for imports.
type Business struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	LeadID     string `json:"leadId"`
	StageID    string `json:"stageId,omitempty"`
	Value      string `json:"value,omitempty"`
	ExternalID string `json:"externalId"`
}

// LeadInput is the payload for creating or patching a lead.
type LeadInput struct {
	Name    string            `json:"name,omitempty"`
	Email   string            `json:"email,omitempty"`
	Phone   string            `json:"phone,omitempty"`
	TaxID   string            `json:"document,omitempty"`
	Address string            `json:"address,omitempty"`
	Custom  map[string]string `json:"customFields,omitempty"`
}

// BusinessInput is the payload for creating a business.
type BusinessInput struct {
	Title      string `json:"title"`
	LeadID     string `json:"leadId"`
	StageID    string `json:"stageId,omitempty"`
	Value      string `json:"value,omitempty"`
	ExternalID string `json:"externalId"`
}

type searchLeadsResponse struct {
	Data []Lead `json:"data"`
}

type listBusinessesResponse struct {
	Data []Business `json:"data"`
}

type searchTagsResponse struct {
	Data []Tag `json:"data"`
}

type apiErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
