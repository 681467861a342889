package handlers

import "time"

// CredentialsRequest carries a username and password.
type CredentialsRequest struct {
	Body struct {
		Username string `doc:"Account username" example:"ada"    json:"username" maxLength:"100" minLength:"1"`
		Password string `doc:"Account password" example:"s3cret" json:"password" minLength:"1"`
	}
}

// UserResponse is returned after registration.
type UserResponse struct {
	Body struct {
		ID       int64  `doc:"User ID"  example:"1"   json:"id"`
		Username string `doc:"Username" example:"ada" json:"username"`
	}
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	Body struct {
		Token     string    `doc:"Bearer access token" json:"token"`
		ExpiresAt time.Time `doc:"Token expiry"        json:"expiresAt"`
	}
}

// DetailBody is the public representation of a detail.
type DetailBody struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	ValueType string    `json:"valueType"`
	Value     any       `doc:"Current value for the detail's type" json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateDetailRequest is the request body for creating a detail.
type CreateDetailRequest struct {
	Body struct {
		Key         string `doc:"Detail key, normalised to lower_snake_case" example:"First Name" json:"key" maxLength:"50"`
		ValueType   string `doc:"Active value type" enum:"string,date,file,image" json:"valueType,omitempty"`
		StringValue string `doc:"Value for string details" json:"stringValue,omitempty" maxLength:"255"`
		DateValue   string `doc:"Value for date details" example:"1990-05-17" format:"date" json:"dateValue,omitempty"`
		FileURL     string `doc:"URL for file details" json:"fileUrl,omitempty"`
		ImageURL    string `doc:"URL for image details" json:"imageUrl,omitempty"`
	}
}

// DetailResponse returns a single detail.
type DetailResponse struct {
	Body DetailBody
}

// DetailListResponse returns a list of details.
type DetailListResponse struct {
	Body []DetailBody
}

// PersonaBody is the public representation of a persona.
type PersonaBody struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreatePersonaRequest is the request body for creating a persona.
type CreatePersonaRequest struct {
	Body struct {
		Key string `doc:"Persona name" example:"work" json:"key" maxLength:"50" minLength:"1"`
	}
}

// PersonaResponse returns a single persona.
type PersonaResponse struct {
	Body PersonaBody
}

// PersonaListResponse returns a list of personas.
type PersonaListResponse struct {
	Body []PersonaBody
}

// PersonaPathRequest addresses a persona by ID.
type PersonaPathRequest struct {
	ID int64 `doc:"Persona ID" path:"id"`
}

// AssignDetailRequest links a detail to a persona.
type AssignDetailRequest struct {
	ID   int64 `doc:"Persona ID" path:"id"`
	Body struct {
		DetailID int64 `doc:"Detail ID" json:"detailId"`
	}
}

// GenerateAPIKeyRequest mints an API key for a persona.
type GenerateAPIKeyRequest struct {
	ID   int64 `doc:"Persona ID" path:"id"`
	Body struct {
		Description string `doc:"Free-form description" json:"description,omitempty" maxLength:"100"`
	}
}

// APIKeyBody describes a stored API key. The secret is never included.
type APIKeyBody struct {
	Prefix      string    `json:"prefix"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GenerateAPIKeyResponse returns the raw key once.
type GenerateAPIKeyResponse struct {
	Body struct {
		Prefix      string    `json:"prefix"`
		Key         string    `doc:"Raw API key; shown only once" json:"key"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		CreatedAt   time.Time `json:"createdAt"`
	}
}

// APIKeyListResponse lists a persona's keys.
type APIKeyListResponse struct {
	Body []APIKeyBody
}

// RevokeAPIKeyRequest addresses a key by prefix.
type RevokeAPIKeyRequest struct {
	Prefix string `doc:"API key prefix" path:"prefix"`
}

// PersonaValuesRequest reads a persona with either an API key or a session.
type PersonaValuesRequest struct {
	ID            int64  `doc:"Persona ID" path:"id"`
	Authorization string `doc:"Api-Key <key> or Bearer <token>" header:"Authorization"`
}

// PersonaValuesResponse maps detail keys to their current values.
type PersonaValuesResponse struct {
	Body map[string]any
}

// ProfileBody is the public representation of the authenticated user.
type ProfileBody struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	WalletAddress string `json:"walletAddress"`
}

// ProfileResponse returns the authenticated user's profile.
type ProfileResponse struct {
	Body ProfileBody
}

// UpdateProfileRequest sets the wallet address. An empty string clears it.
type UpdateProfileRequest struct {
	Body struct {
		WalletAddress string `doc:"Wallet address, unique across users" example:"0x52908400098527886E0F7030069857D2E4169EE7" json:"walletAddress" maxLength:"100"`
	}
}

// DetailPathRequest addresses a detail by ID.
type DetailPathRequest struct {
	ID int64 `doc:"Detail ID" path:"id"`
}

// UpdateDetailRequest changes some fields of a detail. Omitted fields are kept.
type UpdateDetailRequest struct {
	ID   int64 `doc:"Detail ID" path:"id"`
	Body struct {
		Key         *string `doc:"Detail key, normalised to lower_snake_case" json:"key,omitempty" maxLength:"50"`
		ValueType   *string `doc:"Active value type" enum:"string,date,file,image" json:"valueType,omitempty"`
		StringValue *string `doc:"Value for string details" json:"stringValue,omitempty" maxLength:"255"`
		DateValue   *string `doc:"Value for date details" example:"1990-05-17" format:"date" json:"dateValue,omitempty"`
		FileURL     *string `doc:"URL for file details" json:"fileUrl,omitempty"`
		ImageURL    *string `doc:"URL for image details" json:"imageUrl,omitempty"`
	}
}

// UpdatePersonaRequest renames a persona.
type UpdatePersonaRequest struct {
	ID   int64 `doc:"Persona ID" path:"id"`
	Body struct {
		Key string `doc:"Persona name" example:"work" json:"key" maxLength:"50" minLength:"1"`
	}
}

// PersonaDetailPathRequest addresses one link between a persona and a detail.
type PersonaDetailPathRequest struct {
	ID       int64 `doc:"Persona ID" path:"id"`
	DetailID int64 `doc:"Detail ID"  path:"detailId"`
}

// RevokeAllAPIKeysResponse reports how many keys were removed.
type RevokeAllAPIKeysResponse struct {
	Body struct {
		Deleted int64  `doc:"Number of keys removed" json:"deleted"`
		Detail  string `json:"detail"`
	}
}
