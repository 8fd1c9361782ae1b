package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/ccsetup/pkg/cerr"
)

// ProjectProfile describes one CI project to bootstrap.
type ProjectProfile struct {
	Name          string `yaml:"name"`
	Backend       string `yaml:"backend"`
	RepositoryURL string `yaml:"url"`
	Username      string `yaml:"username,omitempty"`
	Password      string `yaml:"password,omitempty"`
	Module        string `yaml:"module,omitempty"`
	Destination   string `yaml:"destination,omitempty"`
}

// Profile models a ccsetup profile file:
//
//	install_dir: /opt/cruisecontrol
//	projects:
//	  - name: demo
//	    backend: svn
//	    url: https://example/svn/demo
type Profile struct {
	InstallDir string           `yaml:"install_dir"`
	Projects   []ProjectProfile `yaml:"projects"`
}

func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "failed to read profile", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("failed to parse profile %s", path), err)
	}
	if err := profile.validate(); err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid profile %s", path), err)
	}
	return &profile, nil
}

func (p *Profile) validate() error {
	if len(p.Projects) == 0 {
		return errors.New("no projects defined")
	}
	seen := make(map[string]bool, len(p.Projects))
	for i, project := range p.Projects {
		if project.Name == "" {
			return fmt.Errorf("projects[%d]: name is required", i)
		}
		if seen[project.Name] {
			return fmt.Errorf("projects[%d]: duplicate project %q", i, project.Name)
		}
		seen[project.Name] = true
		if project.Backend == "" {
			return fmt.Errorf("project %s: backend is required", project.Name)
		}
		if project.RepositoryURL == "" {
			return fmt.Errorf("project %s: url is required", project.Name)
		}
	}
	return nil
}
