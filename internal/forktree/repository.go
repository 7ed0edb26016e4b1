package forktree

import (
	"encoding/json"
	"fmt"
)

// Owner is the account block of a hosted repository record.
type Owner struct {
	Login string `json:"login"`
}

// Repository is the hosting API's description of a repository. The fields
// used by the pipeline are decoded; the full record is kept in Raw and
// written back unchanged.
type Repository struct {
	Owner           Owner  `json:"owner"`
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	CloneURL        string `json:"clone_url"`
	ForksCount      int    `json:"forks_count"`
	ForksURL        string `json:"forks_url"`
	WatchersCount   int    `json:"watchers_count"`
	StargazersCount int    `json:"stargazers_count"`

	Raw json.RawMessage `json:"-"`
}

type repositoryFields Repository

func (r *Repository) UnmarshalJSON(data []byte) error {
	var fields repositoryFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode repository: %w", err)
	}
	*r = Repository(fields)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (r Repository) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(repositoryFields(r))
}

// Key returns the repository's identity.
func (r *Repository) Key() Key {
	return Key{Owner: r.Owner.Login, Name: r.Name}
}

// DisplayName is full_name when the API supplied one.
func (r *Repository) DisplayName() string {
	if r.FullName != "" {
		return r.FullName
	}
	return r.Key().String()
}
