package repository

import (
	"context"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/taskdesk/internal/access"
	"github.com/yukikurage/taskdesk/internal/models"
	"github.com/yukikurage/taskdesk/internal/testutil"
	"github.com/yukikurage/taskdesk/internal/utils"
	"gorm.io/gorm"
)

type RepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	tasks TaskRepository
	users UserRepository
	ctx   context.Context
}

func (suite *RepositoryTestSuite) SetupTest() {
	suite.db = testutil.NewDB(suite.T())
	suite.tasks = NewTaskRepository(suite.db)
	suite.users = NewUserRepository(suite.db)
	suite.ctx = context.Background()
}

var allTasks = access.Scope{Kind: access.KindTask, Predicate: access.PredicateAll}

func (suite *RepositoryTestSuite) TestUpdateFields_Condition() {
	emma := testutil.CreateUser(suite.T(), suite.db, "emma", models.RoleEndUser, "TechCorp")
	task := testutil.CreateTask(suite.T(), suite.db, "Write report", emma.ID, nil, models.TaskStatusPending)

	err := suite.tasks.UpdateFields(suite.ctx, task.ID, TaskCondition{Status: models.TaskStatusInProgress}, map[string]interface{}{"title": "x"})
	suite.ErrorIs(err, ErrConditionNotMet)

	err = suite.tasks.UpdateFields(suite.ctx, task.ID, ObservedState(*task), map[string]interface{}{"title": "Write final report"})
	suite.Require().NoError(err)

	got, err := suite.tasks.FindByID(suite.ctx, task.ID, allTasks)
	suite.Require().NoError(err)
	suite.Equal("Write final report", got.Title)
}

func (suite *RepositoryTestSuite) TestAssign_OnlyOnce() {
	emma := testutil.CreateUser(suite.T(), suite.db, "emma", models.RoleEndUser, "TechCorp")
	mike := testutil.CreateUser(suite.T(), suite.db, "mike", models.RoleCompanyUser, "TechCorp")
	lisa := testutil.CreateUser(suite.T(), suite.db, "lisa", models.RoleCompanyUser, "Globex")
	task := testutil.CreateTask(suite.T(), suite.db, "Write report", emma.ID, nil, models.TaskStatusPending)

	fields := func(id uint64) map[string]interface{} {
		return map[string]interface{}{"assigned_to": id, "assigned_at": time.Now(), "status": models.TaskStatusInProgress}
	}
	suite.Require().NoError(suite.tasks.Assign(suite.ctx, task.ID, fields(mike.ID)))
	suite.ErrorIs(suite.tasks.Assign(suite.ctx, task.ID, fields(lisa.ID)), ErrConditionNotMet)

	got, err := suite.tasks.FindByID(suite.ctx, task.ID, allTasks, "Assignee")
	suite.Require().NoError(err)
	suite.Equal(mike.ID, *got.AssignedTo)
	suite.Equal("mike", got.Assignee.Name)
}

func (suite *RepositoryTestSuite) TestComplete() {
	emma := testutil.CreateUser(suite.T(), suite.db, "emma", models.RoleEndUser, "TechCorp")
	mike := testutil.CreateUser(suite.T(), suite.db, "mike", models.RoleCompanyUser, "TechCorp")
	unassigned := testutil.CreateTask(suite.T(), suite.db, "Loose end", emma.ID, nil, models.TaskStatusPending)
	task := testutil.CreateTask(suite.T(), suite.db, "Write report", emma.ID, &mike.ID, models.TaskStatusInProgress)

	at := time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC)
	file := func() []models.TaskFile {
		return []models.TaskFile{{Filename: "report.pdf", StorageKey: "k.pdf", StorageURL: "u", UploadedBy: &mike.ID, UploadedAt: at}}
	}

	suite.ErrorIs(suite.tasks.Complete(suite.ctx, unassigned.ID, file()), ErrConditionNotMet)
	suite.Require().NoError(suite.tasks.Complete(suite.ctx, task.ID, file()))
	suite.ErrorIs(suite.tasks.Complete(suite.ctx, task.ID, file()), ErrConditionNotMet)

	got, err := suite.tasks.FindByID(suite.ctx, task.ID, allTasks, "Files")
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusCompleted, got.Status)
	suite.Require().NotNil(got.CompletedAt)
	suite.True(got.CompletedAt.Equal(at))
	suite.Len(got.Files, 1)

	count, err := suite.tasks.CountFiles(suite.ctx, unassigned.ID)
	suite.Require().NoError(err)
	suite.Zero(count)
}

func (suite *RepositoryTestSuite) TestDeleteTask_ReturnsFiles() {
	emma := testutil.CreateUser(suite.T(), suite.db, "emma", models.RoleEndUser, "TechCorp")
	mike := testutil.CreateUser(suite.T(), suite.db, "mike", models.RoleCompanyUser, "TechCorp")
	task := testutil.CreateTask(suite.T(), suite.db, "Write report", emma.ID, &mike.ID, models.TaskStatusInProgress)
	suite.Require().NoError(suite.tasks.Complete(suite.ctx, task.ID, []models.TaskFile{
		{Filename: "a.pdf", StorageKey: "a.pdf", StorageURL: "u", UploadedAt: time.Now()},
		{Filename: "b.pdf", StorageKey: "b.pdf", StorageURL: "u", UploadedAt: time.Now()},
	}))

	removed, err := suite.tasks.Delete(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Len(removed, 2)

	_, err = suite.tasks.Delete(suite.ctx, task.ID)
	suite.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (suite *RepositoryTestSuite) TestDeleteUser_Cascade() {
	admin := testutil.CreateUser(suite.T(), suite.db, "admin", models.RoleSuperAdmin, "TechCorp")
	emma := testutil.CreateUser(suite.T(), suite.db, "emma", models.RoleEndUser, "TechCorp")
	mike := testutil.CreateUser(suite.T(), suite.db, "mike", models.RoleCompanyUser, "TechCorp")

	created := testutil.CreateTask(suite.T(), suite.db, "Emma's task", emma.ID, &mike.ID, models.TaskStatusInProgress)
	active := testutil.CreateTask(suite.T(), suite.db, "Active", admin.ID, &mike.ID, models.TaskStatusInProgress)
	done := testutil.CreateTask(suite.T(), suite.db, "Done", admin.ID, &mike.ID, models.TaskStatusInProgress)
	suite.Require().NoError(suite.tasks.Complete(suite.ctx, done.ID, []models.TaskFile{
		{Filename: "done.pdf", StorageKey: "done.pdf", StorageURL: "u", UploadedBy: &mike.ID, UploadedAt: time.Now()},
	}))
	suite.Require().NoError(suite.tasks.Complete(suite.ctx, created.ID, []models.TaskFile{
		{Filename: "mine.pdf", StorageKey: "mine.pdf", StorageURL: "u", UploadedBy: &mike.ID, UploadedAt: time.Now()},
	}))

	// deleting the creator removes their tasks and those tasks' files
	removed, err := suite.users.Delete(suite.ctx, emma.ID)
	suite.Require().NoError(err)
	suite.Require().Len(removed, 1)
	suite.Equal("mine.pdf", removed[0].StorageKey)
	_, err = suite.tasks.FindByID(suite.ctx, created.ID, allTasks)
	suite.ErrorIs(err, gorm.ErrRecordNotFound)

	// deleting the assignee unassigns; unfinished work goes back to Pending
	_, err = suite.users.Delete(suite.ctx, mike.ID)
	suite.Require().NoError(err)

	got, err := suite.tasks.FindByID(suite.ctx, active.ID, allTasks)
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusPending, got.Status)
	suite.Nil(got.AssignedTo)
	suite.Nil(got.AssignedAt)

	got, err = suite.tasks.FindByID(suite.ctx, done.ID, allTasks, "Files")
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusCompleted, got.Status)
	suite.Nil(got.AssignedTo)
	suite.Require().Len(got.Files, 1)
	suite.Nil(got.Files[0].UploadedBy)

	_, err = suite.users.Delete(suite.ctx, mike.ID)
	suite.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (suite *RepositoryTestSuite) TestUsers_ListAssignableAndTaken() {
	testutil.CreateUser(suite.T(), suite.db, "zed", models.RoleCompanyUser, "Globex")
	testutil.CreateUser(suite.T(), suite.db, "amy", models.RoleSuperAdmin, "Acme")
	testutil.CreateUser(suite.T(), suite.db, "bob", models.RoleCompanyUser, "Acme")
	emma := testutil.CreateUser(suite.T(), suite.db, "emma", models.RoleEndUser, "Acme")

	users, err := suite.users.ListAssignable(suite.ctx)
	suite.Require().NoError(err)
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Name
	}
	suite.Equal([]string{"amy", "bob", "zed"}, names)

	taken, err := suite.users.EmailTaken(suite.ctx, "emma@example.com", 0)
	suite.Require().NoError(err)
	suite.True(taken)
	taken, err = suite.users.EmailTaken(suite.ctx, "emma@example.com", emma.ID)
	suite.Require().NoError(err)
	suite.False(taken)
	taken, err = suite.users.NameTaken(suite.ctx, "nobody", 0)
	suite.Require().NoError(err)
	suite.False(taken)

	counts, err := suite.users.CountByRole(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(int64(1), counts[models.RoleSuperAdmin])
	suite.Equal(int64(2), counts[models.RoleCompanyUser])
	suite.Equal(int64(1), counts[models.RoleEndUser])
}

func (suite *RepositoryTestSuite) TestList_FiltersAndPagination() {
	emma := testutil.CreateUser(suite.T(), suite.db, "emma", models.RoleEndUser, "TechCorp")
	mike := testutil.CreateUser(suite.T(), suite.db, "mike", models.RoleCompanyUser, "TechCorp")
	for i := 0; i < 3; i++ {
		testutil.CreateTask(suite.T(), suite.db, "pending", emma.ID, nil, models.TaskStatusPending)
	}
	testutil.CreateTask(suite.T(), suite.db, "active", emma.ID, &mike.ID, models.TaskStatusInProgress)

	unassigned := true
	tasks, total, err := suite.tasks.List(suite.ctx, TaskFilter{
		Scope:      allTasks,
		Unassigned: &unassigned,
		Pagination: utils.PaginationParams{Page: 1, Limit: 2, Offset: 0},
	})
	suite.Require().NoError(err)
	suite.Equal(int64(3), total)
	suite.Len(tasks, 2)
	suite.Equal("emma", tasks[0].Creator.Name)

	tasks, total, err = suite.tasks.List(suite.ctx, TaskFilter{
		Scope:    allTasks,
		Statuses: []models.TaskStatus{models.TaskStatusInProgress},
	})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal("mike", tasks[0].Assignee.Name)

	counts, err := suite.tasks.CountByStatus(suite.ctx, allTasks)
	suite.Require().NoError(err)
	suite.Equal(int64(3), counts[models.TaskStatusPending])
	suite.Equal(int64(1), counts[models.TaskStatusInProgress])
	suite.Equal(int64(0), counts[models.TaskStatusCompleted])
}

// TestScopes_MatchInMemoryPredicates builds a random population and checks
// that every principal's read scope selects exactly the rows the in-memory
// predicate accepts.
func (suite *RepositoryTestSuite) TestScopes_MatchInMemoryPredicates() {
	rng := rand.New(rand.NewSource(42))
	roles := []models.Role{models.RoleSuperAdmin, models.RoleCompanyUser, models.RoleEndUser}
	companies := []string{"", "TechCorp", "Globex", "InnovateX"}

	var users []models.User
	for i := 0; i < 15; i++ {
		u := testutil.CreateUser(suite.T(), suite.db, "user"+string(rune('a'+i)), roles[rng.Intn(len(roles))], companies[rng.Intn(len(companies))])
		users = append(users, *u)
	}
	companyOf := func(id uint64) *string {
		for _, u := range users {
			if u.ID == id {
				return u.Company
			}
		}
		return nil
	}

	var tasks []models.Task
	for i := 0; i < 60; i++ {
		creator := users[rng.Intn(len(users))]
		var assignee *uint64
		if rng.Intn(3) > 0 {
			id := users[rng.Intn(len(users))].ID
			assignee = &id
		}
		tasks = append(tasks, *testutil.CreateTask(suite.T(), suite.db, "task", creator.ID, assignee, models.TaskStatusPending))
	}

	for _, u := range users {
		p := access.PrincipalFor(u)

		taskScope := access.ResolveReadScope(p, access.KindTask)
		got, _, err := suite.tasks.List(suite.ctx, TaskFilter{Scope: taskScope})
		suite.Require().NoError(err)

		var want []uint64
		for _, t := range tasks {
			if taskScope.MatchesTask(t, companyOf) {
				want = append(want, t.ID)
			}
		}
		suite.Equal(sortedIDs(want), taskIDs(got), "task scope %s for user %d", taskScope, u.ID)

		userScope := access.ResolveReadScope(p, access.KindUser)
		gotUsers, _, err := suite.users.List(suite.ctx, userScope, utils.PaginationParams{})
		suite.Require().NoError(err)

		var wantUsers []uint64
		for _, other := range users {
			if userScope.MatchesUser(other) {
				wantUsers = append(wantUsers, other.ID)
			}
		}
		var gotUserIDs []uint64
		for _, other := range gotUsers {
			gotUserIDs = append(gotUserIDs, other.ID)
		}
		suite.Equal(sortedIDs(wantUsers), sortedIDs(gotUserIDs), "user scope %s for user %d", userScope, u.ID)
	}
}

func taskIDs(tasks []models.Task) []uint64 {
	ids := make([]uint64, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return sortedIDs(ids)
}

func sortedIDs(ids []uint64) []uint64 {
	if ids == nil {
		ids = []uint64{}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
