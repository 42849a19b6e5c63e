package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vlearn/apiserver/internal/mq"
	"github.com/vlearn/apiserver/types"
)

const defaultLinkRating = 5

// DocumentationLinkRepository defines persistence operations for
// documentation links.
type DocumentationLinkRepository interface {
	List(ctx context.Context) ([]types.DocumentationLink, error)
	Get(ctx context.Context, id int) (types.DocumentationLink, error)
	Create(ctx context.Context, link types.DocumentationLink) (types.DocumentationLink, error)
	Delete(ctx context.Context, id int) error
	Count(ctx context.Context) (int, error)
}

// ResourceRepository defines persistence operations for resources.
type ResourceRepository interface {
	List(ctx context.Context) ([]types.Resource, error)
	Get(ctx context.Context, id int) (types.Resource, error)
	Create(ctx context.Context, resource types.Resource) (types.Resource, error)
	UpdateFilePath(ctx context.Context, id int, filePath, originalFilename string) error
	Delete(ctx context.Context, id int) error
}

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	List(ctx context.Context) ([]types.Project, error)
	Get(ctx context.Context, id int) (types.Project, error)
	Create(ctx context.Context, project types.Project) (types.Project, error)
	UpdateImagePath(ctx context.Context, id int, imagePath string) error
	Delete(ctx context.Context, id int) error
}

// EventPublisher publishes broker messages. Satisfied by *mq.MQ.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// CatalogEvent is the payload published on mq.CatalogEventsChannel whenever
// a catalog item is created.
type CatalogEvent struct {
	Kind      string    `json:"kind"`
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author,omitempty"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// CatalogService encapsulates catalog use-cases across the three item kinds:
// documentation links, resources, and projects.
type CatalogService struct {
	links     DocumentationLinkRepository
	resources ResourceRepository
	projects  ProjectRepository
	events    EventPublisher
}

// NewCatalogService constructs a CatalogService. events may be nil when no
// broker is configured.
func NewCatalogService(
	links DocumentationLinkRepository,
	resources ResourceRepository,
	projects ProjectRepository,
	events EventPublisher,
) *CatalogService {
	return &CatalogService{
		links:     links,
		resources: resources,
		projects:  projects,
		events:    events,
	}
}

func (s *CatalogService) ListDocumentationLinks(ctx context.Context) ([]types.DocumentationLink, error) {
	return s.links.List(ctx)
}

func (s *CatalogService) AddDocumentationLink(ctx context.Context, link types.DocumentationLink) (types.DocumentationLink, error) {
	link.Title = strings.TrimSpace(link.Title)
	link.URL = strings.TrimSpace(link.URL)
	if link.Title == "" || link.URL == "" || strings.TrimSpace(link.Category) == "" {
		return types.DocumentationLink{}, fmt.Errorf("%w: title, url and category are required", ErrValidation)
	}
	if link.Rating == 0 {
		link.Rating = defaultLinkRating
	}

	created, err := s.links.Create(ctx, link)
	if err != nil {
		return types.DocumentationLink{}, err
	}
	s.publishCreated(ctx, "documentation_link", created.ID, created.Title, "", created.Category, created.CreatedAt)
	return created, nil
}

func (s *CatalogService) DeleteDocumentationLink(ctx context.Context, id int) error {
	return s.links.Delete(ctx, id)
}

func (s *CatalogService) ListResources(ctx context.Context) ([]types.Resource, error) {
	return s.resources.List(ctx)
}

func (s *CatalogService) AddResource(ctx context.Context, resource types.Resource) (types.Resource, error) {
	resource.Title = strings.TrimSpace(resource.Title)
	resource.Author = strings.TrimSpace(resource.Author)
	if resource.Title == "" || resource.Author == "" || strings.TrimSpace(resource.Category) == "" {
		return types.Resource{}, fmt.Errorf("%w: title, author and category are required", ErrValidation)
	}

	created, err := s.resources.Create(ctx, resource)
	if err != nil {
		return types.Resource{}, err
	}
	s.publishCreated(ctx, "resource", created.ID, created.Title, created.Author, created.Category, created.CreatedAt)
	return created, nil
}

// AttachResourceFile records the object-storage key of an uploaded file.
func (s *CatalogService) AttachResourceFile(ctx context.Context, id int, filePath, originalFilename string) error {
	return s.resources.UpdateFilePath(ctx, id, filePath, originalFilename)
}

func (s *CatalogService) DeleteResource(ctx context.Context, id int) error {
	return s.resources.Delete(ctx, id)
}

func (s *CatalogService) ListProjects(ctx context.Context) ([]types.Project, error) {
	return s.projects.List(ctx)
}

func (s *CatalogService) AddProject(ctx context.Context, project types.Project) (types.Project, error) {
	project.Title = strings.TrimSpace(project.Title)
	project.Author = strings.TrimSpace(project.Author)
	if project.Title == "" || project.Author == "" || strings.TrimSpace(project.Category) == "" {
		return types.Project{}, fmt.Errorf("%w: title, author and category are required", ErrValidation)
	}

	created, err := s.projects.Create(ctx, project)
	if err != nil {
		return types.Project{}, err
	}
	s.publishCreated(ctx, "project", created.ID, created.Title, created.Author, created.Category, created.CreatedAt)
	return created, nil
}

// AttachProjectImage records the object-storage key of a showcase image.
func (s *CatalogService) AttachProjectImage(ctx context.Context, id int, imagePath string) error {
	return s.projects.UpdateImagePath(ctx, id, imagePath)
}

func (s *CatalogService) DeleteProject(ctx context.Context, id int) error {
	return s.projects.Delete(ctx, id)
}

// SeedDefaultLinks populates the documentation catalog with the starter set
// when the table is empty. Safe to call on every startup.
func (s *CatalogService) SeedDefaultLinks(ctx context.Context) error {
	count, err := s.links.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, link := range defaultDocumentationLinks {
		if _, err := s.links.Create(ctx, link); err != nil {
			return err
		}
	}
	return nil
}

// publishCreated emits a catalog event. Broker failures are logged, not
// surfaced: the item is already persisted and the event stream is advisory.
func (s *CatalogService) publishCreated(ctx context.Context, kind string, id int, title, author, category string, createdAt time.Time) {
	if s.events == nil {
		return
	}

	event := CatalogEvent{
		Kind:      kind,
		ID:        id,
		Title:     title,
		Author:    author,
		Category:  category,
		CreatedAt: createdAt,
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("catalog event marshal failed: %v", err)
		return
	}
	if _, err := s.events.Publish(ctx, mq.CatalogEventsChannel, data, map[string]string{"kind": kind}); err != nil {
		log.Printf("catalog event publish failed: %v", err)
	}
}

var defaultDocumentationLinks = []types.DocumentationLink{
	{
		Title:       "Python Official Documentation",
		URL:         "https://docs.python.org/3/",
		Description: "The official Python documentation with tutorials, library reference, and language reference.",
		Category:    "Programming",
		Rating:      5,
	},
	{
		Title:       "Git Documentation",
		URL:         "https://git-scm.com/doc",
		Description: "Official Git documentation including tutorials, reference manual, and videos.",
		Category:    "Tools",
		Rating:      5,
	},
	{
		Title:       "Streamlit Documentation",
		URL:         "https://docs.streamlit.io/",
		Description: "Complete guide to building data apps with Streamlit framework.",
		Category:    "Frameworks",
		Rating:      5,
	},
	{
		Title:       "JavaScript MDN Web Docs",
		URL:         "https://developer.mozilla.org/en-US/docs/Web/JavaScript",
		Description: "Comprehensive JavaScript documentation and tutorials from Mozilla.",
		Category:    "Programming",
		Rating:      5,
	},
	{
		Title:       "React Documentation",
		URL:         "https://react.dev/",
		Description: "Official React documentation with interactive tutorials and examples.",
		Category:    "Frameworks",
		Rating:      5,
	},
	{
		Title:       "Docker Documentation",
		URL:         "https://docs.docker.com/",
		Description: "Complete Docker documentation covering containers, images, and deployment.",
		Category:    "DevOps",
		Rating:      5,
	},
	{
		Title:       "VS Code Documentation",
		URL:         "https://code.visualstudio.com/docs",
		Description: "Official Visual Studio Code documentation and setup guides.",
		Category:    "Tools",
		Rating:      5,
	},
	{
		Title:       "Pandas Documentation",
		URL:         "https://pandas.pydata.org/docs/",
		Description: "Official Pandas documentation for data manipulation and analysis.",
		Category:    "Programming",
		Rating:      5,
	},
	{
		Title:       "Node.js Documentation",
		URL:         "https://nodejs.org/docs/",
		Description: "Official Node.js documentation and API reference.",
		Category:    "Programming",
		Rating:      5,
	},
	{
		Title:       "GitHub Documentation",
		URL:         "https://docs.github.com/",
		Description: "Complete GitHub documentation covering repositories, actions, and collaboration.",
		Category:    "Tools",
		Rating:      5,
	},
}
