// Package seed bootstraps accounts and the course catalog from a YAML file.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

// File is the seed document.
type File struct {
	Users   []Account `yaml:"users"`
	Courses []Course  `yaml:"courses"`
}

type Account struct {
	FullName string `yaml:"full_name"`
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type Course struct {
	Code        string    `yaml:"code"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Instructor  string    `yaml:"instructor"`
	Department  string    `yaml:"department"`
	Credits     int       `yaml:"credits"`
	Schedule    string    `yaml:"schedule"`
	MaxStudents int       `yaml:"max_students"`
	Sessions    []Session `yaml:"sessions"`
}

type Session struct {
	Day   string `yaml:"day"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	Room  string `yaml:"room"`
}

// Result counts what Apply created and what already existed.
type Result struct {
	UsersCreated   int
	UsersSkipped   int
	CoursesCreated int
	CoursesSkipped int
}

// LoadFile reads and parses a seed file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var f File
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing seed YAML: %w", err)
	}
	return &f, nil
}

// Seeder applies a File through the regular use cases, so seeded data goes
// through the same validation as API writes.
type Seeder struct {
	users   ports.UserService
	courses ports.CourseService
	log     zerolog.Logger
}

func NewSeeder(users ports.UserService, courses ports.CourseService, log zerolog.Logger) *Seeder {
	return &Seeder{users: users, courses: courses, log: log}
}

// Apply creates every account and course in f. Entries whose email,
// username or course code already exist are skipped, so Apply can run
// repeatedly against the same database.
func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	var res Result

	for _, a := range f.Users {
		_, err := s.users.Create(ctx, ports.CreateUserInput{
			FullName: a.FullName,
			Username: a.Username,
			Email:    a.Email,
			Password: a.Password,
			Role:     a.Role,
		})
		switch {
		case err == nil:
			res.UsersCreated++
			s.log.Info().Str("email", a.Email).Str("role", a.Role).Msg("seeded user")
		case errors.Is(err, domain.ErrDuplicateEmail), errors.Is(err, domain.ErrDuplicateUsername):
			res.UsersSkipped++
			s.log.Debug().Str("email", a.Email).Msg("user exists, skipping")
		default:
			return res, fmt.Errorf("seed user %s: %w", a.Email, err)
		}
	}

	for _, c := range f.Courses {
		_, err := s.courses.Create(ctx, c.input())
		switch {
		case err == nil:
			res.CoursesCreated++
			s.log.Info().Str("code", c.Code).Msg("seeded course")
		case errors.Is(err, domain.ErrDuplicateCourseCode):
			res.CoursesSkipped++
			s.log.Debug().Str("code", c.Code).Msg("course exists, skipping")
		default:
			return res, fmt.Errorf("seed course %s: %w", c.Code, err)
		}
	}

	return res, nil
}

func (c Course) input() ports.CourseInput {
	in := ports.CourseInput{
		CourseCode:  c.Code,
		Title:       c.Title,
		Description: c.Description,
		Instructor:  c.Instructor,
		Department:  c.Department,
		Credits:     c.Credits,
		Schedule:    c.Schedule,
		MaxStudents: c.MaxStudents,
	}
	for _, s := range c.Sessions {
		in.Sessions = append(in.Sessions, ports.SessionInput{
			DayOfWeek: s.Day,
			StartTime: s.Start,
			EndTime:   s.End,
			Room:      s.Room,
		})
	}
	return in
}
