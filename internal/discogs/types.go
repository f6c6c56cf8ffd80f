package discogs

// Pagination is the page envelope on list endpoints.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

// CollectionPage is one page of a user's collection.
type CollectionPage struct {
	Pagination Pagination        `json:"pagination"`
	Releases   []CollectionEntry `json:"releases"`
}

// CollectionEntry is one item in a collection folder.
type CollectionEntry struct {
	ID               int64             `json:"id"`
	InstanceID       int64             `json:"instance_id"`
	FolderID         int64             `json:"folder_id"`
	Rating           int               `json:"rating"`
	DateAdded        string            `json:"date_added"`
	BasicInformation *BasicInformation `json:"basic_information" validate:"required"`
}

// BasicInformation is the release summary embedded in a collection entry.
type BasicInformation struct {
	ID          int64       `json:"id" validate:"gt=0"`
	Title       string      `json:"title" validate:"required"`
	Year        int         `json:"year" validate:"gte=0"`
	Thumb       string      `json:"thumb"`
	CoverImage  string      `json:"cover_image"`
	ResourceURL string      `json:"resource_url"`
	Artists     []ArtistRef `json:"artists" validate:"dive"`
	Labels      []LabelRef  `json:"labels" validate:"dive"`
	Genres      []string    `json:"genres" validate:"dive,required"`
	Styles      []string    `json:"styles" validate:"dive,required"`
	Formats     []Format    `json:"formats"`
}

type ArtistRef struct {
	ID          int64  `json:"id" validate:"gt=0"`
	Name        string `json:"name" validate:"required"`
	ANV         string `json:"anv"`
	Join        string `json:"join"`
	Role        string `json:"role"`
	ResourceURL string `json:"resource_url"`
}

type LabelRef struct {
	ID          int64  `json:"id" validate:"gt=0"`
	Name        string `json:"name" validate:"required"`
	CatNo       string `json:"catno"`
	EntityType  string `json:"entity_type"`
	ResourceURL string `json:"resource_url"`
}

type Format struct {
	Name         string   `json:"name"`
	Qty          string   `json:"qty"`
	Descriptions []string `json:"descriptions"`
}

// Identity is the user an access token belongs to.
type Identity struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	ResourceURL  string `json:"resource_url"`
	ConsumerName string `json:"consumer_name"`
}

// Release is the subset of GET /releases/{id} crate reads.
type Release struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Year   int     `json:"year"`
	Videos []Video `json:"videos"`
}

type Video struct {
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Embed       bool   `json:"embed"`
}
