package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Irene-03/todo-list-app/internal/model"
	"github.com/Irene-03/todo-list-app/internal/repository"
)

// todoDoc is the stored shape of a todo
type todoDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"userId"`
	Text        string             `bson:"text"`
	Description string             `bson:"description"`
	Done        bool               `bson:"done"`
	Important   bool               `bson:"important"`
	Priority    string             `bson:"priority"`
	DueDate     *time.Time         `bson:"dueDate,omitempty"`
	Groups      []string           `bson:"groups"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
	CompletedAt *time.Time         `bson:"completedAt,omitempty"`
}

func toTodoDoc(todo model.Todo) todoDoc {
	groups := todo.Groups
	if groups == nil {
		groups = []string{}
	}

	return todoDoc{
		UserID:      todo.UserID,
		Text:        todo.Text,
		Description: todo.Description,
		Done:        todo.Done,
		Important:   todo.Important,
		Priority:    string(todo.Priority),
		DueDate:     storedTimePtr(todo.DueDate),
		Groups:      groups,
		CreatedAt:   storedTime(todo.CreatedAt),
		UpdatedAt:   storedTime(todo.UpdatedAt),
		CompletedAt: storedTimePtr(todo.CompletedAt),
	}
}

func (d todoDoc) toModel() model.Todo {
	groups := d.Groups
	if groups == nil {
		groups = []string{}
	}

	return model.Todo{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Text:        d.Text,
		Description: d.Description,
		Done:        d.Done,
		Important:   d.Important,
		Priority:    model.Priority(d.Priority),
		DueDate:     d.DueDate,
		Groups:      groups,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		CompletedAt: d.CompletedAt,
	}
}

// storedTime is t at the millisecond UTC precision of a BSON datetime
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func storedTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := storedTime(*t)
	return &u
}

// TodoRepository implements repository.TodoRepository
type TodoRepository struct {
	coll *mongo.Collection
}

var _ repository.TodoRepository = (*TodoRepository)(nil)

// ownedFilter matches the todo with id belonging to owner
func ownedFilter(owner string, id primitive.ObjectID) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "userId", Value: owner}}
}

// FindAll returns all todos of the owner in insertion order
func (r *TodoRepository) FindAll(ctx context.Context, owner string) ([]model.Todo, error) {
	cursor, err := r.coll.Find(ctx,
		bson.D{{Key: "userId", Value: owner}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, repository.NewStorageError("find todos", err)
	}

	var docs []todoDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, repository.NewStorageError("decode todos", err)
	}

	todos := make([]model.Todo, 0, len(docs))
	for _, doc := range docs {
		todos = append(todos, doc.toModel())
	}

	return todos, nil
}

// FindByID returns a specific todo by ID
func (r *TodoRepository) FindByID(ctx context.Context, owner, id string) (model.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.Todo{}, repository.ErrTodoNotFound{ID: id}
	}

	var doc todoDoc
	err = r.coll.FindOne(ctx, ownedFilter(owner, oid)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Todo{}, repository.ErrTodoNotFound{ID: id}
	}
	if err != nil {
		return model.Todo{}, repository.NewStorageError("find todo", err)
	}

	return doc.toModel(), nil
}

// Create inserts a new todo document
func (r *TodoRepository) Create(ctx context.Context, todo model.Todo) (model.Todo, error) {
	doc := toTodoDoc(todo)
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return model.Todo{}, repository.NewStorageError("insert todo", err)
	}

	return doc.toModel(), nil
}

// Update replaces the stored document of an existing todo
func (r *TodoRepository) Update(ctx context.Context, owner, id string, todo model.Todo) (model.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.Todo{}, repository.ErrTodoNotFound{ID: id}
	}

	todo.UserID = owner
	doc := toTodoDoc(todo)

	res, err := r.coll.ReplaceOne(ctx, ownedFilter(owner, oid), doc)
	if err != nil {
		return model.Todo{}, repository.NewStorageError("update todo", err)
	}
	if res.MatchedCount == 0 {
		return model.Todo{}, repository.ErrTodoNotFound{ID: id}
	}

	doc.ID = oid
	return doc.toModel(), nil
}

// Delete removes a todo
func (r *TodoRepository) Delete(ctx context.Context, owner, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrTodoNotFound{ID: id}
	}

	res, err := r.coll.DeleteOne(ctx, ownedFilter(owner, oid))
	if err != nil {
		return repository.NewStorageError("delete todo", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrTodoNotFound{ID: id}
	}

	return nil
}

// DeleteCompleted removes every done todo of the owner
func (r *TodoRepository) DeleteCompleted(ctx context.Context, owner string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{
		{Key: "userId", Value: owner},
		{Key: "done", Value: true},
	})
	if err != nil {
		return 0, repository.NewStorageError("delete completed", err)
	}

	return res.DeletedCount, nil
}
