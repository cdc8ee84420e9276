package roster

// Package roster manages the people side of the system: students, staff and
// counter operators. Balance fields are owned by the accounting engine and
// never move through here.

import (
    "context"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"
    "golang.org/x/crypto/bcrypt"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/errs"
    "github.com/gatepos/canteen/internal/meta"
    "github.com/gatepos/canteen/internal/slug"
)

// Repo defines the reads the roster service needs.
type Repo interface {
    GetPerson(ctx context.Context, id uuid.UUID) (canteen.Person, error)
    GetPersonByRefCode(ctx context.Context, code string) (canteen.Person, error)
    ListPersons(ctx context.Context, kind *canteen.PersonKind) ([]canteen.Person, error)
    GetOperator(ctx context.Context, id uuid.UUID) (canteen.Operator, error)
    GetOperatorByUsername(ctx context.Context, username string) (canteen.Operator, error)
    ListOperators(ctx context.Context) ([]canteen.Operator, error)
}

// Writer defines the writes the roster service needs.
type Writer interface {
    CreatePerson(ctx context.Context, p canteen.Person) (canteen.Person, error)
    UpdatePerson(ctx context.Context, p canteen.Person) (canteen.Person, error)
    DeletePerson(ctx context.Context, id uuid.UUID) error
    CreateOperator(ctx context.Context, o canteen.Operator) (canteen.Operator, error)
    DeleteOperator(ctx context.Context, id uuid.UUID) error
}

// CreatePersonRequest carries the descriptive fields for a new person.
type CreatePersonRequest struct {
    Kind canteen.PersonKind
    Name string
    // RefCode is auto-generated when empty.
    RefCode  string
    Dept     string
    Phone    string
    Metadata meta.Metadata
}

// UpdatePersonRequest patches descriptive fields; nil fields are unchanged.
type UpdatePersonRequest struct {
    Name     *string
    RefCode  *string
    Dept     *string
    Phone    *string
    Metadata meta.Metadata
}

// Service manages persons and operators.
type Service interface {
    CreatePerson(ctx context.Context, req CreatePersonRequest) (canteen.Person, error)
    UpdatePerson(ctx context.Context, id uuid.UUID, req UpdatePersonRequest) (canteen.Person, error)
    DeletePerson(ctx context.Context, id uuid.UUID) error
    GetPerson(ctx context.Context, id uuid.UUID) (canteen.Person, error)
    ListPersons(ctx context.Context, kind *canteen.PersonKind) ([]canteen.Person, error)

    CreateOperator(ctx context.Context, username, password string) (canteen.Operator, error)
    ListOperators(ctx context.Context) ([]canteen.Operator, error)
    DeleteOperator(ctx context.Context, id uuid.UUID) error
    // Verify checks credentials; a bad username and a bad password are the
    // same NotFound so callers cannot probe for usernames.
    Verify(ctx context.Context, username, password string) (canteen.Operator, error)
}

type service struct {
    repo   Repo
    writer Writer
    now    func() time.Time
}

// New builds the roster service.
func New(repo Repo, writer Writer) Service {
    return &service{repo: repo, writer: writer, now: time.Now}
}

func (s *service) CreatePerson(ctx context.Context, req CreatePersonRequest) (canteen.Person, error) {
    if req.Name == "" {
        return canteen.Person{}, errs.ErrInvalid
    }
    switch req.Kind {
    case canteen.KindStudent, canteen.KindStaff:
    default:
        return canteen.Person{}, errs.ErrInvalid
    }
    if err := req.Metadata.Validate(); err != nil {
        return canteen.Person{}, err
    }
    code := strings.TrimSpace(req.RefCode)
    if code == "" {
        // Random suffix: creations in the same instant must not collide.
        code = fmt.Sprintf("R-%s", uuid.NewString()[:8])
    }
    p := canteen.Person{
        ID:       uuid.New(),
        Kind:     req.Kind,
        Name:     strings.TrimSpace(req.Name),
        RefCode:  code,
        Dept:     slug.Slugify(req.Dept),
        Phone:    strings.TrimSpace(req.Phone),
        Metadata: req.Metadata.Clone(),
    }
    return s.writer.CreatePerson(ctx, p)
}

func (s *service) UpdatePerson(ctx context.Context, id uuid.UUID, req UpdatePersonRequest) (canteen.Person, error) {
    p, err := s.repo.GetPerson(ctx, id)
    if err != nil {
        return canteen.Person{}, err
    }
    if req.Name != nil {
        if *req.Name == "" {
            return canteen.Person{}, errs.ErrInvalid
        }
        p.Name = strings.TrimSpace(*req.Name)
    }
    if req.RefCode != nil {
        if strings.TrimSpace(*req.RefCode) == "" {
            return canteen.Person{}, errs.ErrInvalid
        }
        p.RefCode = strings.TrimSpace(*req.RefCode)
    }
    if req.Dept != nil {
        p.Dept = slug.Slugify(*req.Dept)
    }
    if req.Phone != nil {
        p.Phone = strings.TrimSpace(*req.Phone)
    }
    if req.Metadata != nil {
        if err := req.Metadata.Validate(); err != nil {
            return canteen.Person{}, err
        }
        md := p.Metadata.Clone()
        md.Merge(req.Metadata)
        p.Metadata = md
    }
    return s.writer.UpdatePerson(ctx, p)
}

func (s *service) DeletePerson(ctx context.Context, id uuid.UUID) error {
    return s.writer.DeletePerson(ctx, id)
}

func (s *service) GetPerson(ctx context.Context, id uuid.UUID) (canteen.Person, error) {
    return s.repo.GetPerson(ctx, id)
}

func (s *service) ListPersons(ctx context.Context, kind *canteen.PersonKind) ([]canteen.Person, error) {
    return s.repo.ListPersons(ctx, kind)
}

func (s *service) CreateOperator(ctx context.Context, username, password string) (canteen.Operator, error) {
    username = strings.TrimSpace(username)
    if username == "" || len(password) < 4 {
        return canteen.Operator{}, errs.ErrInvalid
    }
    hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
    if err != nil {
        return canteen.Operator{}, err
    }
    o := canteen.Operator{
        ID:           uuid.New(),
        Username:     username,
        PasswordHash: string(hash),
        CreatedAt:    s.now().UTC(),
    }
    return s.writer.CreateOperator(ctx, o)
}

func (s *service) ListOperators(ctx context.Context) ([]canteen.Operator, error) {
    return s.repo.ListOperators(ctx)
}

func (s *service) DeleteOperator(ctx context.Context, id uuid.UUID) error {
    return s.writer.DeleteOperator(ctx, id)
}

func (s *service) Verify(ctx context.Context, username, password string) (canteen.Operator, error) {
    o, err := s.repo.GetOperatorByUsername(ctx, username)
    if err != nil {
        return canteen.Operator{}, err
    }
    if bcrypt.CompareHashAndPassword([]byte(o.PasswordHash), []byte(password)) != nil {
        return canteen.Operator{}, errs.ErrNotFound
    }
    return o, nil
}
