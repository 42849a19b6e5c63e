package types

import "time"

// DocumentationLink is a curated link to external documentation.
// Entries are append-only catalog items shown on the documentation page.
type DocumentationLink struct {
	// ID is the unique identifier of the link.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the documentation.
	Title string `json:"title" db:"title"`

	// URL is the external address of the documentation.
	URL string `json:"url" db:"url"`

	// Description summarises what the documentation covers.
	Description string `json:"description" db:"description"`

	// Category groups links on the browsing page (e.g. "Programming",
	// "Tools", "Frameworks").
	Category string `json:"category" db:"category"`

	// Rating is the curator's 1-5 quality rating. Defaults to 5.
	Rating int `json:"rating" db:"rating"`

	// CreatedAt is the timestamp at which the link was added.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Resource is a community-uploaded learning resource. The Type field
// determines which of Content and FilePath carries the payload.
type Resource struct {
	// ID is the unique identifier of the resource.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the resource.
	Title string `json:"title" db:"title"`

	// Author is the display name of the uploader.
	Author string `json:"author" db:"author"`

	// Category groups resources on the browsing page.
	Category string `json:"category" db:"category"`

	// Type is one of "Link", "Text", "Image", "Video" or "File".
	Type string `json:"type" db:"type"`

	// Description summarises the resource.
	Description string `json:"description" db:"description"`

	// Content holds inline text or an external URL, depending on Type.
	Content string `json:"content" db:"content"`

	// FilePath is the object-storage key of an uploaded file, if any.
	FilePath string `json:"file_path" db:"file_path"`

	// OriginalFilename is the client-supplied name of the uploaded file.
	OriginalFilename string `json:"original_filename" db:"original_filename"`

	// CreatedAt is the timestamp at which the resource was added.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Project is a showcased community project.
type Project struct {
	// ID is the unique identifier of the project.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the project.
	Title string `json:"title" db:"title"`

	// Author is the display name of the submitter.
	Author string `json:"author" db:"author"`

	// Category groups projects on the showcase page.
	Category string `json:"category" db:"category"`

	// Description summarises the project.
	Description string `json:"description" db:"description"`

	// Technologies lists the languages, frameworks and tools used.
	Technologies []string `json:"technologies" db:"technologies"`

	// GithubURL links to the source repository, if public.
	GithubURL string `json:"github_url" db:"github_url"`

	// DemoURL links to a live demo, if any.
	DemoURL string `json:"demo_url" db:"demo_url"`

	// ExternalLink is an additional related URL (blog post, docs).
	ExternalLink string `json:"external_link" db:"external_link"`

	// Status describes the project's lifecycle stage
	// (e.g. "In Progress", "Completed").
	Status string `json:"status" db:"status"`

	// Challenges records difficulties the author ran into.
	Challenges string `json:"challenges" db:"challenges"`

	// Learnings records what the author took away from the project.
	Learnings string `json:"learnings" db:"learnings"`

	// FuturePlans records intended follow-up work.
	FuturePlans string `json:"future_plans" db:"future_plans"`

	// ImagePath is the object-storage key of a showcase image, if any.
	ImagePath string `json:"image_path" db:"image_path"`

	// Likes counts community likes.
	Likes int `json:"likes" db:"likes"`

	// CreatedAt is the timestamp at which the project was added.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
