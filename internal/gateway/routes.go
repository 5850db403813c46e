package gateway

import (
	"net/http"
	"strconv"

	appointmentsapi "github.com/casebooklabs/casebook/internal/services/appointments/api"
	casesapi "github.com/casebooklabs/casebook/internal/services/cases/api"
	clientsapi "github.com/casebooklabs/casebook/internal/services/clients/api"
	filesapi "github.com/casebooklabs/casebook/internal/services/files/api"
	tasksapi "github.com/casebooklabs/casebook/internal/services/tasks/api"
	usersapi "github.com/casebooklabs/casebook/internal/services/users/api"
	visitorsapi "github.com/casebooklabs/casebook/internal/services/visitors/api"
	"github.com/go-chi/chi/v5"
)

// pageParams reads pagination query values. Out-of-range values are left
// for the owning service to normalize.
func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}

func (s *Server) userRoutes(api chi.Router) {
	api.Route("/users", func(r chi.Router) {
		r.Post("/", relay[usersapi.CreateUserRequest, usersapi.User](s, usersapi.TopicCreateUser, http.StatusCreated, nil))
		r.Get("/", relay[usersapi.ListRequest, usersapi.UserPage](s, usersapi.TopicGetUsers, http.StatusOK,
			func(r *http.Request, in *usersapi.ListRequest) error {
				in.Page, in.Limit = pageParams(r)
				return nil
			}))
		r.Patch("/{id}/profile", relay[usersapi.UpdateProfileRequest, usersapi.User](s, usersapi.TopicUpdateUserProfile, http.StatusOK,
			func(r *http.Request, in *usersapi.UpdateProfileRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
		r.Patch("/{id}/role", relay[usersapi.UpdateRoleRequest, usersapi.User](s, usersapi.TopicUpdateUserRole, http.StatusOK,
			func(r *http.Request, in *usersapi.UpdateRoleRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
		r.Delete("/{id}", relay[usersapi.GetByIDRequest, struct{}](s, usersapi.TopicDeleteUser, http.StatusOK,
			func(r *http.Request, in *usersapi.GetByIDRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
	})

	api.Route("/roles", func(r chi.Router) {
		r.Post("/", relay[usersapi.CreateRoleRequest, usersapi.Role](s, usersapi.TopicCreateRole, http.StatusCreated, nil))
		r.Get("/", relay[struct{}, []usersapi.Role](s, usersapi.TopicGetAllRoles, http.StatusOK, nil))
		r.Get("/{id}", relay[usersapi.GetByIDRequest, usersapi.Role](s, usersapi.TopicGetRoleByID, http.StatusOK,
			func(r *http.Request, in *usersapi.GetByIDRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
	})
}

func (s *Server) clientRoutes(api chi.Router) {
	api.Route("/clients", func(r chi.Router) {
		r.Post("/", relay[clientsapi.CreateClientRequest, clientsapi.Client](s, clientsapi.TopicCreateClient, http.StatusCreated, nil))
		r.Get("/", relay[clientsapi.ListRequest, clientsapi.ClientPage](s, clientsapi.TopicGetAllClients, http.StatusOK,
			func(r *http.Request, in *clientsapi.ListRequest) error {
				in.Page, in.Limit = pageParams(r)
				return nil
			}))
		r.Get("/{id}", relay[clientsapi.GetByIDRequest, clientsapi.Client](s, clientsapi.TopicGetClientByID, http.StatusOK,
			func(r *http.Request, in *clientsapi.GetByIDRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
		r.Patch("/{id}", relay[clientsapi.UpdateClientRequest, clientsapi.Client](s, clientsapi.TopicUpdateClient, http.StatusOK,
			func(r *http.Request, in *clientsapi.UpdateClientRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
		r.Delete("/{id}", relay[clientsapi.GetByIDRequest, struct{}](s, clientsapi.TopicDeleteClient, http.StatusOK,
			func(r *http.Request, in *clientsapi.GetByIDRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
	})
}

func (s *Server) caseRoutes(api chi.Router) {
	api.Route("/cases", func(r chi.Router) {
		r.Post("/", relay[casesapi.CreateCaseRequest, casesapi.Case](s, casesapi.TopicCreateNewCase, http.StatusCreated, nil))
		r.Post("/assign", relay[casesapi.AssignCaseRequest, casesapi.Case](s, casesapi.TopicAssignNewCase, http.StatusCreated, nil))
		r.Get("/", relay[casesapi.ListRequest, casesapi.CasePage](s, casesapi.TopicGetAllCases, http.StatusOK,
			func(r *http.Request, in *casesapi.ListRequest) error {
				in.Page, in.Limit = pageParams(r)
				return nil
			}))
		r.Get("/hearings/upcoming", relay[struct{}, []casesapi.Case](s, casesapi.TopicGetUpcomingHearings, http.StatusOK, nil))
		r.Get("/hearings/mine", relay[casesapi.MyHearingsRequest, []casesapi.Case](s, casesapi.TopicSearchMyHearings, http.StatusOK, nil))
		r.Get("/number/{number}", relay[casesapi.GetByNumberRequest, casesapi.Case](s, casesapi.TopicSearchCaseByNumber, http.StatusOK,
			func(r *http.Request, in *casesapi.GetByNumberRequest) error {
				in.Number = chi.URLParam(r, "number")
				return nil
			}))
		r.Get("/{id}", relay[casesapi.GetByIDRequest, casesapi.Case](s, casesapi.TopicSearchCaseByID, http.StatusOK,
			func(r *http.Request, in *casesapi.GetByIDRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
		r.Get("/{id}/files", relay[filesapi.GetForCaseRequest, []filesapi.FileMetadata](s, filesapi.TopicGetFilesForCase, http.StatusOK,
			func(r *http.Request, in *filesapi.GetForCaseRequest) error {
				in.CaseID = chi.URLParam(r, "id")
				return nil
			}))
		r.Patch("/{id}", relay[casesapi.UpdateCaseRequest, casesapi.Case](s, casesapi.TopicUpdateCaseDetails, http.StatusOK,
			func(r *http.Request, in *casesapi.UpdateCaseRequest) error {
				in.CaseID = chi.URLParam(r, "id")
				return nil
			}))
		r.Patch("/{id}/reassign", relay[casesapi.ReassignCaseRequest, casesapi.Case](s, casesapi.TopicReassignCase, http.StatusOK,
			func(r *http.Request, in *casesapi.ReassignCaseRequest) error {
				in.CaseID = chi.URLParam(r, "id")
				return nil
			}))
	})
}

func (s *Server) taskRoutes(api chi.Router) {
	api.Route("/tasks", func(r chi.Router) {
		r.Post("/", relay[tasksapi.AssignTaskRequest, tasksapi.Task](s, tasksapi.TopicAssignNewTask, http.StatusCreated, nil))
		r.Get("/", relay[tasksapi.ListRequest, tasksapi.TaskPage](s, tasksapi.TopicGetAllTasks, http.StatusOK,
			func(r *http.Request, in *tasksapi.ListRequest) error {
				in.Page, in.Limit = pageParams(r)
				return nil
			}))
		r.Get("/mine", relay[tasksapi.MyTasksRequest, []tasksapi.Task](s, tasksapi.TopicGetMyTasks, http.StatusOK, nil))
		r.Get("/pending", relay[struct{}, []tasksapi.Task](s, tasksapi.TopicGetPendingTasks, http.StatusOK, nil))
		r.Get("/{id}", relay[tasksapi.GetByIDRequest, tasksapi.Task](s, tasksapi.TopicGetTaskByID, http.StatusOK,
			func(r *http.Request, in *tasksapi.GetByIDRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
		r.Patch("/{id}/status", relay[tasksapi.UpdateStatusRequest, tasksapi.Task](s, tasksapi.TopicUpdateTaskStatus, http.StatusOK,
			func(r *http.Request, in *tasksapi.UpdateStatusRequest) error {
				in.TaskID = chi.URLParam(r, "id")
				return nil
			}))
		r.Delete("/{id}", relay[tasksapi.GetByIDRequest, struct{}](s, tasksapi.TopicDeleteTask, http.StatusOK,
			func(r *http.Request, in *tasksapi.GetByIDRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
	})
}

func (s *Server) visitorRoutes(api chi.Router) {
	api.Route("/visitors", func(r chi.Router) {
		r.Post("/", relay[visitorsapi.RecordVisitorRequest, visitorsapi.Visitor](s, visitorsapi.TopicRecordNewVisitor, http.StatusCreated, nil))
		r.Get("/", relay[visitorsapi.ListRequest, visitorsapi.VisitorPage](s, visitorsapi.TopicGetAllVisitors, http.StatusOK,
			func(r *http.Request, in *visitorsapi.ListRequest) error {
				in.Page, in.Limit = pageParams(r)
				return nil
			}))
		r.Get("/search", relay[visitorsapi.SearchVisitorRequest, []visitorsapi.Visitor](s, visitorsapi.TopicSearchForVisitor, http.StatusOK,
			func(r *http.Request, in *visitorsapi.SearchVisitorRequest) error {
				in.FullName = r.URL.Query().Get("name")
				return nil
			}))
		r.Get("/{id}", relay[visitorsapi.GetByIDRequest, visitorsapi.Visitor](s, visitorsapi.TopicGetVisitorByID, http.StatusOK,
			func(r *http.Request, in *visitorsapi.GetByIDRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
		r.Patch("/{id}", relay[visitorsapi.UpdateVisitorRequest, visitorsapi.Visitor](s, visitorsapi.TopicUpdateVisitorRecord, http.StatusOK,
			func(r *http.Request, in *visitorsapi.UpdateVisitorRequest) error {
				in.VisitorID = chi.URLParam(r, "id")
				return nil
			}))
		r.Post("/{id}/sign-out", relay[visitorsapi.SignOutRequest, visitorsapi.Visitor](s, visitorsapi.TopicSignOutVisitor, http.StatusOK,
			func(r *http.Request, in *visitorsapi.SignOutRequest) error {
				in.VisitorID = chi.URLParam(r, "id")
				return nil
			}))
		r.Delete("/{id}", relay[visitorsapi.GetByIDRequest, struct{}](s, visitorsapi.TopicDeleteVisitorRecord, http.StatusOK,
			func(r *http.Request, in *visitorsapi.GetByIDRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
	})
}

func (s *Server) appointmentRoutes(api chi.Router) {
	api.Route("/appointments", func(r chi.Router) {
		r.Post("/", relay[appointmentsapi.CreateAppointmentRequest, appointmentsapi.Appointment](s, appointmentsapi.TopicCreateAppointment, http.StatusCreated, nil))
		r.Get("/", relay[appointmentsapi.ListRequest, appointmentsapi.AppointmentPage](s, appointmentsapi.TopicGetAllAppointments, http.StatusOK,
			func(r *http.Request, in *appointmentsapi.ListRequest) error {
				in.Page, in.Limit = pageParams(r)
				return nil
			}))
		r.Get("/mine", relay[appointmentsapi.MyAppointmentsRequest, []appointmentsapi.Appointment](s, appointmentsapi.TopicGetMyAppointments, http.StatusOK, nil))
		r.Get("/search", relay[appointmentsapi.SearchTitlesRequest, []appointmentsapi.Appointment](s, appointmentsapi.TopicSearchTitles, http.StatusOK,
			func(r *http.Request, in *appointmentsapi.SearchTitlesRequest) error {
				in.Title = r.URL.Query().Get("title")
				return nil
			}))
		r.Get("/{id}", relay[appointmentsapi.GetByIDRequest, appointmentsapi.Appointment](s, appointmentsapi.TopicGetAppointmentByID, http.StatusOK,
			func(r *http.Request, in *appointmentsapi.GetByIDRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
		r.Patch("/{id}", relay[appointmentsapi.UpdateAppointmentRequest, appointmentsapi.Appointment](s, appointmentsapi.TopicUpdateAppointment, http.StatusOK,
			func(r *http.Request, in *appointmentsapi.UpdateAppointmentRequest) error {
				in.AppointmentID = chi.URLParam(r, "id")
				return nil
			}))
		r.Delete("/{id}", relay[appointmentsapi.CancelRequest, struct{}](s, appointmentsapi.TopicCancelAppointment, http.StatusOK,
			func(r *http.Request, in *appointmentsapi.CancelRequest) error {
				in.AppointmentID = chi.URLParam(r, "id")
				return nil
			}))
	})
}
