// Package mongo implements storage.ItemStore on MongoDB using the official
// Go driver.
//
// Items live in one collection of the database named by the connection
// string path. Each document carries an ObjectID _id, the name as given
// and a createdAt date; the hex form of the ObjectID is the public item id.
//
//	store, err := mongo.Open(ctx, storage.Config{
//		MongoURL:               "mongodb://localhost:27017/appdb",
//		MongoCollection:        "items",
//		ServerSelectionTimeout: 5 * time.Second,
//	})
//	if err != nil {
//		return err
//	}
//	defer store.Close(context.Background())
package mongo
